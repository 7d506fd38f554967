package app

import (
	"strings"

	"quiz-session-service/internal/domain"
)

// RequestExit is called when the user tries to leave (page unload, back navigation).
// While the session is active it returns ErrExitNeedsConfirmation; afterwards the
// guard is inert and exit is allowed.
func (s *Session) RequestExit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return domain.ErrExitNeedsConfirmation
	}
	return nil
}

// ConfirmExit abandons an active session after the user confirmed leaving and
// signals cancellation to the host. Nothing is submitted.
func (s *Session) ConfirmExit() {
	s.mu.Lock()
	defer s.unlock()

	if !s.active {
		return
	}
	s.active = false
	s.phase = domain.PhaseCancelled
	s.prompt = nil
	s.submitSeq++
	s.stopLocked()

	host := s.deps.Host
	sig := domain.CancelSignal{
		ExamProgressID: s.params.ExamProgressID,
		ExamID:         s.params.ExamID,
		UserID:         s.params.UserID,
	}
	s.outbox = append(s.outbox, func() { host.Cancelled(sig) })
	s.log.Info().Msg("session cancelled by user")
}

// AllowUnload reports whether the page may unload without asking.
func (s *Session) AllowUnload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.active
}

// InterceptKey reports whether a key press must be suppressed (reload shortcuts while active).
func (s *Session) InterceptKey(key string) bool {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	return active && isReloadShortcut(key)
}

func isReloadShortcut(key string) bool {
	switch strings.ToLower(strings.ReplaceAll(key, " ", "")) {
	case "f5", "ctrl+f5", "ctrl+r", "meta+r", "ctrl+shift+r", "meta+shift+r":
		return true
	}
	return false
}
