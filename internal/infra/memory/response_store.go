package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

// ResponseStore keeps the latest answer snapshot and the final submission per attempt
// in process. Used when no backend or database is configured.
type ResponseStore struct {
	mu          sync.RWMutex
	progress    map[int]domain.ProgressUpdate
	submissions map[int]domain.Submission
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{
		progress:    make(map[int]domain.ProgressUpdate),
		submissions: make(map[int]domain.Submission),
	}
}

func (s *ResponseStore) SaveProgress(_ context.Context, update domain.ProgressUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.submissions[update.UserExamProgressID]; ok && sub.IsCompleted {
		return nil
	}
	s.progress[update.UserExamProgressID] = update
	return nil
}

func (s *ResponseStore) SubmitExam(_ context.Context, submission domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[submission.ID] = submission
	return nil
}

// Progress returns the latest snapshot saved for an attempt.
func (s *ResponseStore) Progress(examProgressID int) (domain.ProgressUpdate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[examProgressID]
	return p, ok
}

// Submission returns the final record of an attempt.
func (s *ResponseStore) Submission(examProgressID int) (domain.Submission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[examProgressID]
	return sub, ok
}
