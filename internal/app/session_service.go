package app

import (
	"context"

	"github.com/rs/zerolog"
	"quiz-session-service/internal/domain"
)

// SessionRepository abstracts where live sessions are registered (in-memory, Redis, etc).
type SessionRepository interface {
	Add(session *Session) error
	Get(examProgressID int) (*Session, bool)
	Remove(examProgressID int)
}

// SessionService starts sessions with the configured collaborators and keeps a
// registry of the live ones, keyed by exam progress id.
type SessionService struct {
	sessions  SessionRepository
	questions QuestionSource
	responses ResponsePersistence
	log       zerolog.Logger
	opts      []Option
}

func NewSessionService(sessions SessionRepository, questions QuestionSource, responses ResponsePersistence, log zerolog.Logger, opts ...Option) *SessionService {
	return &SessionService{
		sessions:  sessions,
		questions: questions,
		responses: responses,
		log:       log.With().Str("component", "session_service").Logger(),
		opts:      opts,
	}
}

// Start constructs a session for params. The session unregisters itself when it
// finishes or is cancelled. Sessions without questions are returned but not registered.
func (s *SessionService) Start(ctx context.Context, params domain.ExamParams, host NavigationHost, opts ...Option) (*Session, error) {
	if _, ok := s.sessions.Get(params.ExamProgressID); ok {
		return nil, domain.ErrSessionExists
	}
	if host == nil {
		host = nopHost{}
	}

	progressID := params.ExamProgressID
	deps := Deps{
		Questions: s.questions,
		Responses: s.responses,
		Host: &releasingHost{
			NavigationHost: host,
			release:        func() { s.sessions.Remove(progressID) },
		},
		Log: s.log,
	}
	all := append(append([]Option(nil), s.opts...), opts...)
	session, err := NewSession(ctx, params, deps, all...)
	if err != nil {
		return nil, err
	}
	if session.Phase() == domain.PhaseUnavailable {
		return session, nil
	}
	if err := s.sessions.Add(session); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

// Get returns the live session of an attempt.
func (s *SessionService) Get(examProgressID int) (*Session, error) {
	session, ok := s.sessions.Get(examProgressID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Abandon closes a live session without any host signal and drops it from the registry.
func (s *SessionService) Abandon(examProgressID int) {
	session, ok := s.sessions.Get(examProgressID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Remove(examProgressID)
	s.log.Info().Int("exam_progress_id", examProgressID).Msg("session abandoned")
}

// releasingHost drops the session from the registry before passing terminal signals on.
type releasingHost struct {
	NavigationHost
	release func()
}

func (h *releasingHost) Finished(summary domain.ResultSummary) {
	h.release()
	h.NavigationHost.Finished(summary)
}

func (h *releasingHost) Cancelled(signal domain.CancelSignal) {
	h.release()
	h.NavigationHost.Cancelled(signal)
}
