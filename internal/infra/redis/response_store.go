package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-session-service/internal/domain"
)

// ResponseStore persists answer snapshots and final submissions in Redis.
// Snapshots:   SET  exam:progress:{id}:responses <responseData>
// Submissions: HSET exam:progress:{id}:submission field value ...
type ResponseStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResponseStore(client *redis.Client, ttl time.Duration) *ResponseStore {
	return &ResponseStore{client: client, ttl: ttl}
}

// saveProgressScript writes the snapshot unless the submission hash is already
// completed. KEYS: submission, responses. ARGV: responseData, ttl in ms (0 keeps forever).
var saveProgressScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'isCompleted') == '1' then
	return 0
end
if tonumber(ARGV[2]) > 0 then
	redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
else
	redis.call('SET', KEYS[2], ARGV[1])
end
return 1
`)

// SaveProgress overwrites the stored snapshot. Snapshots arriving after a completed
// submission are dropped; the check and the write run as one script.
func (s *ResponseStore) SaveProgress(ctx context.Context, update domain.ProgressUpdate) error {
	keys := []string{submissionKey(update.UserExamProgressID), responsesKey(update.UserExamProgressID)}
	if err := saveProgressScript.Run(ctx, s.client, keys, update.ResponseData, s.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *ResponseStore) SubmitExam(ctx context.Context, submission domain.Submission) error {
	key := submissionKey(submission.ID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"userId", submission.UserID,
		"packageId", submission.PackageID,
		"userPackageId", submission.UserPackageID,
		"examId", submission.ExamID,
		"isCompleted", boolField(submission.IsCompleted),
		"score", submission.Score,
		"startedAtUtc", submission.StartedAtUTC,
		"completedAtUtc", submission.CompletedAtUTC,
		"responseData", submission.ResponseData,
		"status", submission.Status,
	)
	pipe.Set(ctx, responsesKey(submission.ID), submission.ResponseData, s.ttl)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("submit exam: %w", err)
	}
	return nil
}

// Submission reads a stored final record back.
func (s *ResponseStore) Submission(ctx context.Context, examProgressID int) (domain.Submission, bool, error) {
	fields, err := s.client.HGetAll(ctx, submissionKey(examProgressID)).Result()
	if err != nil {
		return domain.Submission{}, false, err
	}
	if len(fields) == 0 {
		return domain.Submission{}, false, nil
	}
	atoi := func(k string) int {
		n, _ := strconv.Atoi(fields[k])
		return n
	}
	return domain.Submission{
		ID:             examProgressID,
		UserID:         atoi("userId"),
		PackageID:      atoi("packageId"),
		UserPackageID:  atoi("userPackageId"),
		ExamID:         atoi("examId"),
		IsCompleted:    fields["isCompleted"] == "1",
		Score:          atoi("score"),
		StartedAtUTC:   fields["startedAtUtc"],
		CompletedAtUTC: fields["completedAtUtc"],
		ResponseData:   fields["responseData"],
		Status:         fields["status"],
	}, true, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func responsesKey(examProgressID int) string {
	return "exam:progress:" + strconv.Itoa(examProgressID) + ":responses"
}

func submissionKey(examProgressID int) string {
	return "exam:progress:" + strconv.Itoa(examProgressID) + ":submission"
}
