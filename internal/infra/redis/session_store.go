package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions own goroutines and timers, so the live objects stay in a local map.
//   - Redis holds a liveness key per attempt so a second instance refuses to start
//     the same exam progress id while the first one is serving it.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[int]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[int]*app.Session),
	}
}

func (s *SessionStore) Add(session *app.Session) error {
	id := session.ExamProgressID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		return domain.ErrSessionExists
	}
	// best-effort: an unreachable Redis does not block local sessions
	claimed, err := s.client.SetNX(context.Background(), s.key(id), "1", s.ttl).Result()
	if err == nil && !claimed {
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
	if _, ok := s.sessions[examProgressID]; !ok {
		return
	}
	delete(s.sessions, examProgressID)
	_ = s.client.Del(context.Background(), s.key(examProgressID)).Err()
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) key(examProgressID int) string {
	return "quiz:session:" + strconv.Itoa(examProgressID)
}
