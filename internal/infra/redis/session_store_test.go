package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	session := newSession(t, 42)

	if err := store.Add(session); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !mr.Exists("quiz:session:42") {
		t.Fatalf("expected redis key to be set")
	}
	if got, ok := store.Get(42); !ok || got != session {
		t.Fatalf("expected session to be registered")
	}
	if err := store.Add(session); !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("expected duplicate add to fail, got %v", err)
	}

	store.Remove(42)
	if mr.Exists("quiz:session:42") {
		t.Fatalf("expected redis key to be removed")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestSessionStoreRefusesAttemptClaimedElsewhere(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	_ = mr.Set("quiz:session:42", "1")
	store := NewSessionStore(newClient(mr), time.Minute)

	if err := store.Add(newSession(t, 42)); !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("expected claimed attempt to be refused, got %v", err)
	}
	// a refused add must not release the other instance's claim
	store.Remove(42)
	if !mr.Exists("quiz:session:42") {
		t.Fatalf("expected foreign key to survive")
	}
}

func newSession(t *testing.T, examProgressID int) *app.Session {
	t.Helper()
	session, err := app.NewSession(context.Background(), domain.ExamParams{
		UserID:         7,
		ExamID:         3,
		ExamProgressID: examProgressID,
		Questions:      sampleQuestions(),
	}, app.Deps{
		Responses: memory.NewResponseStore(),
		Log:       zerolog.Nop(),
	}, app.WithManualTicks())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(session.Close)
	return session
}
