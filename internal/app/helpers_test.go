package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

var errBackendDown = errors.New("backend down")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingStore struct {
	mu          sync.Mutex
	progress    []domain.ProgressUpdate
	submissions []domain.Submission
	attempts    int
	progressErr error
	submitErr   error
	entered     chan struct{}
	release     chan struct{}
}

func (s *recordingStore) SaveProgress(_ context.Context, update domain.ProgressUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progressErr != nil {
		return s.progressErr
	}
	s.progress = append(s.progress, update)
	return nil
}

func (s *recordingStore) SubmitExam(_ context.Context, submission domain.Submission) error {
	s.mu.Lock()
	s.attempts++
	entered, release := s.entered, s.release
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil {
		return s.submitErr
	}
	s.submissions = append(s.submissions, submission)
	return nil
}

func (s *recordingStore) setSubmitErr(err error) {
	s.mu.Lock()
	s.submitErr = err
	s.mu.Unlock()
}

func (s *recordingStore) submitted() []domain.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Submission(nil), s.submissions...)
}

func (s *recordingStore) submitAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *recordingStore) lastProgress() (domain.ProgressUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.progress) == 0 {
		return domain.ProgressUpdate{}, false
	}
	return s.progress[len(s.progress)-1], true
}

type recordingHost struct {
	mu        sync.Mutex
	notices   []domain.Notice
	finished  []domain.ResultSummary
	cancelled []domain.CancelSignal
}

func (h *recordingHost) Notify(n domain.Notice) {
	h.mu.Lock()
	h.notices = append(h.notices, n)
	h.mu.Unlock()
}

func (h *recordingHost) Finished(summary domain.ResultSummary) {
	h.mu.Lock()
	h.finished = append(h.finished, summary)
	h.mu.Unlock()
}

func (h *recordingHost) Cancelled(sig domain.CancelSignal) {
	h.mu.Lock()
	h.cancelled = append(h.cancelled, sig)
	h.mu.Unlock()
}

func (h *recordingHost) lastNotice() (domain.Notice, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.notices) == 0 {
		return domain.Notice{}, false
	}
	return h.notices[len(h.notices)-1], true
}

func (h *recordingHost) finishedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.finished)
}

type staticSource struct {
	questions []domain.Question
	err       error
	calls     int
}

func (s *staticSource) GetQuestions(_ context.Context, _, _ int) ([]domain.Question, error) {
	s.calls++
	return s.questions, s.err
}

// sampleQuestions builds n four-choice questions whose correct option is "B".
func sampleQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:         100 + i,
			Prompt:     "Pick B",
			OptionA:    "a",
			OptionB:    "b",
			OptionC:    "c",
			OptionD:    "d",
			Correct:    "B",
			Type:       domain.QuestionTypeFour,
			CategoryID: 1,
		}
	}
	return qs
}

func sampleParams(questions []domain.Question, timeLimit int) domain.ExamParams {
	return domain.ExamParams{
		UserID:         7,
		ExamID:         3,
		ExamName:       "Numerical Reasoning",
		TimeLimit:      timeLimit,
		ExamProgressID: 42,
		UserPackageID:  5,
		PackageID:      2,
		Questions:      questions,
	}
}

type fixture struct {
	session *app.Session
	store   *recordingStore
	host    *recordingHost
	clock   *fakeClock
}

func newFixture(t *testing.T, params domain.ExamParams, opts ...app.Option) *fixture {
	t.Helper()
	f := &fixture{
		store: &recordingStore{},
		host:  &recordingHost{},
		clock: newFakeClock(),
	}
	all := append([]app.Option{app.WithManualTicks(), app.WithClock(f.clock.Now)}, opts...)
	session, err := app.NewSession(context.Background(), params, app.Deps{
		Responses: f.store,
		Host:      f.host,
		Log:       zerolog.Nop(),
	}, all...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(session.Close)
	f.session = session
	return f
}

func (f *fixture) ticks(n int) {
	for i := 0; i < n; i++ {
		f.session.Tick()
	}
}

// openPrompt answers the first n questions with "B" and ends the quiz.
func openPrompt(t *testing.T, s *app.Session, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := s.SelectAnswer("B", i); err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
	}
	opened, err := s.EndQuiz()
	if err != nil || !opened {
		t.Fatalf("expected prompt to open, opened=%v err=%v", opened, err)
	}
}

func assertStatusInvariant(t *testing.T, s *app.Session) {
	t.Helper()
	snap := s.Snapshot()
	answered := make(map[int]bool, len(snap.Answers))
	for _, rec := range snap.Answers {
		answered[rec.QuestionID] = true
	}
	if len(snap.Statuses) != snap.QuestionCount {
		t.Fatalf("expected %d statuses, got %d", snap.QuestionCount, len(snap.Statuses))
	}
	questions := sampleQuestions(snap.QuestionCount)
	for i, st := range snap.Statuses {
		switch st {
		case domain.StatusAttended, domain.StatusSkipped, domain.StatusNotAttended:
		default:
			t.Fatalf("position %d has unknown status %q", i, st)
		}
		if (st == domain.StatusAttended) != answered[questions[i].ID] {
			t.Fatalf("position %d status %q disagrees with answer set %+v", i, st, snap.Answers)
		}
	}
}
