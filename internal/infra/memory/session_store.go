package memory

import (
	"sync"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int]*app.Session),
	}
}

func (s *SessionStore) Add(session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := session.ExamProgressID()
	if _, ok := s.sessions[id]; ok {
		return domain.ErrSessionExists
	}
	s.sessions[id] = session
	return nil
}

func (s *SessionStore) Get(examProgressID int) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[examProgressID]
	return session, ok
}

func (s *SessionStore) Remove(examProgressID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, examProgressID)
}

// Len reports how many sessions are live.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
