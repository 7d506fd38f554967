package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-session-service/internal/domain"
)

// ResponseStore keeps attempts in user_exam_progress.
type ResponseStore struct {
	pool *pgxpool.Pool
}

func NewResponseStore(pool *pgxpool.Pool) *ResponseStore {
	return &ResponseStore{pool: pool}
}

const upsertProgressSQL = `
INSERT INTO user_exam_progress (id, user_id, exam_id, section_id, response_data, updated_at)
VALUES ($1, $2, $3, $4, $5::jsonb, now())
ON CONFLICT (id) DO UPDATE
SET response_data = EXCLUDED.response_data, updated_at = now()
WHERE user_exam_progress.is_completed = FALSE`

// SaveProgress overwrites the stored answer snapshot unless the attempt is already completed.
func (s *ResponseStore) SaveProgress(ctx context.Context, update domain.ProgressUpdate) error {
	_, err := s.pool.Exec(ctx, upsertProgressSQL,
		update.UserExamProgressID,
		update.UserID,
		update.ExamID,
		update.SectionID,
		update.ResponseData,
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

const submitSQL = `
INSERT INTO user_exam_progress (
	id, user_id, exam_id, package_id, user_package_id, is_completed, score,
	started_at, completed_at, response_data, status, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, now())
ON CONFLICT (id) DO UPDATE SET
	user_id = EXCLUDED.user_id,
	exam_id = EXCLUDED.exam_id,
	package_id = EXCLUDED.package_id,
	user_package_id = EXCLUDED.user_package_id,
	is_completed = EXCLUDED.is_completed,
	score = EXCLUDED.score,
	started_at = EXCLUDED.started_at,
	completed_at = EXCLUDED.completed_at,
	response_data = EXCLUDED.response_data,
	status = EXCLUDED.status,
	updated_at = now()`

func (s *ResponseStore) SubmitExam(ctx context.Context, submission domain.Submission) error {
	startedAt, err := parseTimestamp(submission.StartedAtUTC)
	if err != nil {
		return err
	}
	completedAt, err := parseTimestamp(submission.CompletedAtUTC)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, submitSQL,
		submission.ID,
		submission.UserID,
		submission.ExamID,
		submission.PackageID,
		submission.UserPackageID,
		submission.IsCompleted,
		submission.Score,
		startedAt,
		completedAt,
		submission.ResponseData,
		submission.Status,
	)
	if err != nil {
		return fmt.Errorf("submit exam: %w", err)
	}
	return nil
}

// Submission reads back a stored attempt.
func (s *ResponseStore) Submission(ctx context.Context, examProgressID int) (domain.Submission, error) {
	var (
		sub                    domain.Submission
		startedAt, completedAt *time.Time
		responseData           []byte
	)
	err := s.pool.QueryRow(ctx, `
SELECT id, user_id, exam_id, package_id, user_package_id, is_completed, score,
	started_at, completed_at, response_data, status
FROM user_exam_progress WHERE id=$1`, examProgressID).Scan(
		&sub.ID, &sub.UserID, &sub.ExamID, &sub.PackageID, &sub.UserPackageID,
		&sub.IsCompleted, &sub.Score, &startedAt, &completedAt, &responseData, &sub.Status,
	)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("read submission: %w", err)
	}
	sub.ResponseData = string(responseData)
	if startedAt != nil {
		sub.StartedAtUTC = startedAt.UTC().Format(time.RFC3339)
	}
	if completedAt != nil {
		sub.CompletedAtUTC = completedAt.UTC().Format(time.RFC3339)
	}
	return sub, nil
}

func parseTimestamp(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return &t, nil
}
