package app

import (
	"errors"
	"time"

	"quiz-session-service/internal/domain"
)

func (s *Session) runTimers() {
	defer s.loops.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances both clocks by one second. It has no effect unless the session is
// active. When the countdown reaches zero the session is submitted, once; the
// countdown never restarts, even if that submission fails.
func (s *Session) Tick() {
	s.mu.Lock()
	if !s.active {
		s.unlock()
		return
	}

	s.elapsed++
	fire := false
	if s.timeBound && !s.expired {
		if s.remaining > 0 {
			s.remaining--
		}
		if s.remaining == 0 {
			s.expired = true
			fire = true
		}
	}
	if s.onTick != nil {
		st := s.timersLocked()
		observe := s.onTick
		s.outbox = append(s.outbox, func() { observe(st) })
	}
	if fire {
		s.notifyLocked(domain.NoticeTimeUp, "Time is up. Submitting your answers.")
	}
	s.unlock()

	if !fire {
		return
	}
	s.log.Info().Msg("time limit reached, forcing submission")
	if _, err := s.submit(s.ctx, true); err != nil && !errors.Is(err, domain.ErrSessionInactive) {
		s.log.Warn().Err(err).Msg("forced submission failed")
	}
}

// Timers returns the current clocks.
func (s *Session) Timers() domain.TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timersLocked()
}
