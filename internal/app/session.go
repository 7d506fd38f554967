package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/validator"
)

// Option customizes a Session.
type Option func(*Session)

// WithClock replaces time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithManualTicks disables the timer loop; the caller drives Tick.
func WithManualTicks() Option {
	return func(s *Session) { s.manual = true }
}

// WithTickInterval sets the period of the timer loop (one simulated second).
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithTickObserver registers a callback receiving the clocks after every effective tick.
func WithTickObserver(fn func(domain.TimerState)) Option {
	return func(s *Session) { s.onTick = fn }
}

// Session owns the state of exactly one exam attempt. Every event is applied under mu,
// so commands, timer ticks and persistence completions never interleave.
type Session struct {
	params   domain.ExamParams
	deps     Deps
	log      zerolog.Logger
	now      func() time.Time
	interval time.Duration
	manual   bool
	onTick   func(domain.TimerState)

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	loops    sync.WaitGroup
	fwd      *forwarder

	mu        sync.Mutex
	outbox    []func()
	phase     domain.Phase
	questions []domain.Question
	status    []domain.QuestionStatus
	answers   *answerSet
	active    bool
	index     int
	enteredAt time.Time
	startedAt time.Time
	elapsed   int
	remaining int
	timeBound bool
	expired   bool
	prompt    *domain.ConfirmPrompt
	submitSeq int
}

// NewSession validates params, resolves the question list (fetching it when the host
// supplied none) and starts the timers. A session without questions is returned in
// the unavailable phase and never becomes active.
func NewSession(ctx context.Context, params domain.ExamParams, deps Deps, opts ...Option) (*Session, error) {
	if err := validator.Struct(params); err != nil {
		return nil, err
	}
	if deps.Responses == nil {
		return nil, errors.New("response persistence is required")
	}
	if deps.Host == nil {
		deps.Host = nopHost{}
	}

	s := &Session{
		params:   params,
		deps:     deps,
		now:      time.Now,
		interval: time.Second,
		done:     make(chan struct{}),
		phase:    domain.PhaseLoading,
		answers:  newAnswerSet(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	if s.params.UserID == 0 && deps.Auth != nil {
		userID, err := deps.Auth.UserID(ctx)
		if err != nil {
			s.cancel()
			return nil, fmt.Errorf("resolve user: %w", err)
		}
		s.params.UserID = userID
	}

	s.log = deps.Log.With().
		Int("exam_progress_id", s.params.ExamProgressID).
		Int("exam_id", s.params.ExamID).
		Int("user_id", s.params.UserID).
		Logger()

	questions := s.params.Questions
	if len(questions) == 0 {
		questions = s.fetchQuestions(ctx)
	}
	s.params.Questions = nil
	if err := checkQuestionIDs(questions); err != nil {
		s.cancel()
		return nil, err
	}

	s.mu.Lock()
	if len(questions) == 0 {
		s.phase = domain.PhaseUnavailable
		s.notifyLocked(domain.NoticeNoQuestions, "No questions are available for this exam.")
		s.stopLocked()
		s.unlock()
		s.cancel()
		s.log.Warn().Msg("session has no questions")
		return s, nil
	}

	s.questions = append([]domain.Question(nil), questions...)
	s.status = make([]domain.QuestionStatus, len(questions))
	for i := range s.status {
		s.status[i] = domain.StatusNotAttended
	}
	now := s.now()
	s.startedAt = now
	s.enteredAt = now
	if s.params.TimeLimit > 0 {
		s.timeBound = true
		s.remaining = s.params.TimeLimit * 60
	}
	s.active = true
	s.phase = domain.PhaseActive
	s.fwd = newForwarder(s.ctx, deps.Responses, s.done, s.log)
	s.mu.Unlock()

	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		s.fwd.run()
		s.cancel()
	}()
	if !s.manual {
		s.loops.Add(1)
		go s.runTimers()
	}

	s.log.Info().
		Int("questions", len(questions)).
		Bool("time_bound", s.timeBound).
		Msg("session started")
	return s, nil
}

func (s *Session) fetchQuestions(ctx context.Context) []domain.Question {
	if s.deps.Questions == nil {
		return nil
	}
	s.setLoading(true)
	defer s.setLoading(false)

	questions, err := s.deps.Questions.GetQuestions(ctx, s.params.ExamID, 0)
	if err != nil {
		s.log.Warn().Err(err).Msg("fetch questions failed")
		return nil
	}
	return questions
}

func (s *Session) setLoading(on bool) {
	if s.deps.Loading != nil {
		s.deps.Loading(on)
	}
}

// ExamProgressID identifies the attempt this session belongs to.
func (s *Session) ExamProgressID() int {
	return s.params.ExamProgressID
}

// Phase returns the macro state.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot returns a copy of the observable state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.SessionSnapshot{
		ExamProgressID: s.params.ExamProgressID,
		ExamID:         s.params.ExamID,
		ExamName:       s.params.ExamName,
		Phase:          s.phase,
		Active:         s.active,
		ActiveIndex:    s.index,
		QuestionCount:  len(s.questions),
		Statuses:       append([]domain.QuestionStatus(nil), s.status...),
		Answers:        s.answers.snapshot(),
		Timers:         s.timersLocked(),
		StartedAt:      s.startedAt,
	}
	if len(s.questions) > 0 {
		q := s.questions[s.index].Public()
		snap.Question = &q
	}
	if s.prompt != nil {
		p := *s.prompt
		snap.Prompt = &p
	}
	return snap
}

// SelectAnswer records option for the question at index and forwards the whole answer
// set to the persistence service without waiting for it.
func (s *Session) SelectAnswer(option string, index int) error {
	s.mu.Lock()
	defer s.unlock()

	if err := s.checkNavigableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.questions) {
		return domain.ErrQuestionIndex
	}
	q := s.questions[index]
	option = strings.ToUpper(strings.TrimSpace(option))
	if !q.HasOption(option) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidOption, option)
	}

	taken := int(s.now().Sub(s.enteredAt) / time.Second)
	if taken < 0 {
		taken = 0
	}
	s.answers.upsert(domain.AnswerRecord{
		QuestionID: q.ID,
		Option:     option,
		TimeTaken:  taken,
	})
	s.status[index] = domain.StatusAttended

	update, err := s.progressLocked()
	if err != nil {
		s.log.Error().Err(err).Msg("encode answers")
		return nil
	}
	s.fwd.enqueue(update)
	return nil
}

// Advance is the Next/Finish action.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.unlock()

	if err := s.checkNavigableLocked(); err != nil {
		return err
	}
	i := s.index
	last := i == len(s.questions)-1

	if s.answers.has(s.questions[i].ID) {
		s.status[i] = domain.StatusAttended
		if !last {
			s.moveLocked(i + 1)
			return nil
		}
		s.openPromptLocked()
		return nil
	}

	s.status[i] = domain.StatusSkipped
	if !last {
		s.moveLocked(i + 1)
		return nil
	}
	s.notifyLocked(domain.NoticeSelectAnswer, "Please select an answer before finishing.")
	return nil
}

// Retreat moves to the previous question without touching any status.
func (s *Session) Retreat() error {
	s.mu.Lock()
	defer s.unlock()

	if err := s.checkNavigableLocked(); err != nil {
		return err
	}
	if s.index > 0 {
		s.moveLocked(s.index - 1)
	}
	return nil
}

// JumpTo makes index active. An unvisited active question is marked skipped, even
// when index is the active position itself; the entry timestamp restarts.
func (s *Session) JumpTo(index int) error {
	s.mu.Lock()
	defer s.unlock()

	if err := s.checkNavigableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.questions) {
		return domain.ErrQuestionIndex
	}
	if s.status[s.index] == domain.StatusNotAttended {
		s.status[s.index] = domain.StatusSkipped
	}
	s.moveLocked(index)
	return nil
}

// EndQuiz is the explicit end action. Time-bound exams always open the prompt; untimed
// exams open it only when every question is attended. It reports whether the prompt opened.
func (s *Session) EndQuiz() (bool, error) {
	s.mu.Lock()
	defer s.unlock()

	if err := s.checkNavigableLocked(); err != nil {
		return false, err
	}
	if !s.timeBound && !countStatuses(s.status).complete() {
		s.notifyLocked(domain.NoticeIncomplete, "Answer every question before ending the exam.")
		return false, nil
	}
	s.openPromptLocked()
	return true, nil
}

// CancelPrompt closes the submission prompt and returns to the questions.
func (s *Session) CancelPrompt() error {
	s.mu.Lock()
	defer s.unlock()

	if s.phase != domain.PhaseConfirming {
		return domain.ErrPromptNotOpen
	}
	s.prompt = nil
	s.phase = domain.PhaseActive
	return nil
}

// ConfirmSubmit accepts the open prompt and submits.
func (s *Session) ConfirmSubmit(ctx context.Context) (domain.ResultSummary, error) {
	s.mu.Lock()
	if s.phase != domain.PhaseConfirming {
		s.mu.Unlock()
		return domain.ResultSummary{}, domain.ErrPromptNotOpen
	}
	s.mu.Unlock()
	return s.submit(ctx, false)
}

// Submit ends the session from the open prompt, or retries a submission after the
// countdown expired. Anywhere else it returns ErrPromptNotOpen; untimed exams reach
// the prompt only through EndQuiz.
func (s *Session) Submit(ctx context.Context) (domain.ResultSummary, error) {
	return s.submit(ctx, false)
}

// submit scores the session and sends the final record. Only the first of concurrent
// calls proceeds; later ones get ErrSessionInactive. On failure the session is
// re-armed so the user can retry. forced is set by the countdown.
func (s *Session) submit(ctx context.Context, forced bool) (domain.ResultSummary, error) {
	s.mu.Lock()
	if s.phase == domain.PhaseUnavailable {
		s.unlock()
		return domain.ResultSummary{}, domain.ErrNoQuestions
	}
	if !s.active {
		s.unlock()
		return domain.ResultSummary{}, domain.ErrSessionInactive
	}
	if !forced && s.phase != domain.PhaseConfirming && !s.expired {
		s.unlock()
		return domain.ResultSummary{}, domain.ErrPromptNotOpen
	}
	s.active = false
	s.phase = domain.PhaseSubmitting
	s.prompt = nil
	s.submitSeq++
	seq := s.submitSeq

	submission, err := s.submissionLocked(s.now())
	if err != nil {
		s.active = true
		s.phase = domain.PhaseActive
		s.unlock()
		return domain.ResultSummary{}, fmt.Errorf("encode submission: %w", err)
	}
	summary := s.summaryLocked(submission.Score)
	s.unlock()

	s.setLoading(true)
	err = s.deps.Responses.SubmitExam(ctx, submission)
	s.setLoading(false)

	s.mu.Lock()
	defer s.unlock()

	if seq != s.submitSeq || s.phase != domain.PhaseSubmitting {
		return domain.ResultSummary{}, domain.ErrSubmissionSuperseded
	}
	if err != nil {
		s.active = true
		s.phase = domain.PhaseActive
		if s.expired {
			s.notifyLocked(domain.NoticeRetrySubmission, "Time is up but the exam could not be submitted. Please submit again.")
		} else {
			s.notifyLocked(domain.NoticeSubmitFailed, "The exam could not be submitted. Please try again.")
		}
		s.log.Error().Err(err).Msg("submit exam failed")
		return domain.ResultSummary{}, fmt.Errorf("submit exam: %w", err)
	}

	s.phase = domain.PhaseTerminated
	s.stopLocked()
	host := s.deps.Host
	s.outbox = append(s.outbox, func() { host.Finished(summary) })
	s.log.Info().
		Int("score", summary.Score).
		Int("answered", summary.Answered).
		Int("time_taken", summary.TimeTaken).
		Msg("exam submitted")
	return summary, nil
}

// Close stops the session without signalling the host, e.g. when the client vanished.
// Answers already forwarded stay persisted; nothing else is.
func (s *Session) Close() {
	s.mu.Lock()
	if s.active || s.phase == domain.PhaseSubmitting {
		s.active = false
		s.phase = domain.PhaseCancelled
		s.prompt = nil
		s.submitSeq++
	}
	s.stopLocked()
	s.mu.Unlock()

	s.cancel()
	s.loops.Wait()
}

// Flush blocks until every queued answer forward has been attempted.
func (s *Session) Flush() {
	if s.fwd != nil {
		s.fwd.wait()
	}
}

func (s *Session) checkNavigableLocked() error {
	switch {
	case s.phase == domain.PhaseUnavailable:
		return domain.ErrNoQuestions
	case !s.active:
		return domain.ErrSessionInactive
	case s.phase == domain.PhaseConfirming:
		return domain.ErrPromptOpen
	}
	return nil
}

func (s *Session) moveLocked(index int) {
	s.index = index
	s.enteredAt = s.now()
}

func (s *Session) openPromptLocked() {
	p := confirmPrompt(s.status)
	s.prompt = &p
	s.phase = domain.PhaseConfirming
}

func (s *Session) notifyLocked(kind domain.NoticeKind, msg string) {
	host := s.deps.Host
	n := domain.Notice{Kind: kind, Message: msg}
	s.outbox = append(s.outbox, func() { host.Notify(n) })
}

// unlock releases mu and then runs callbacks queued while it was held.
func (s *Session) unlock() {
	pending := s.outbox
	s.outbox = nil
	s.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func (s *Session) stopLocked() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Session) timersLocked() domain.TimerState {
	st := domain.TimerState{Elapsed: s.elapsed, TimeBound: s.timeBound}
	if s.timeBound {
		remaining := s.remaining
		st.Remaining = &remaining
	}
	return st
}

func (s *Session) progressLocked() (domain.ProgressUpdate, error) {
	data, err := s.answers.marshal()
	if err != nil {
		return domain.ProgressUpdate{}, err
	}
	return domain.ProgressUpdate{
		UserExamProgressID: s.params.ExamProgressID,
		UserID:             s.params.UserID,
		ExamID:             s.params.ExamID,
		SectionID:          0,
		ResponseData:       data,
	}, nil
}

func (s *Session) submissionLocked(completedAt time.Time) (domain.Submission, error) {
	data, err := s.answers.marshal()
	if err != nil {
		return domain.Submission{}, err
	}
	return domain.Submission{
		ID:             s.params.ExamProgressID,
		UserID:         s.params.UserID,
		PackageID:      s.params.PackageID,
		UserPackageID:  s.params.UserPackageID,
		ExamID:         s.params.ExamID,
		IsCompleted:    true,
		Score:          score(s.questions, s.answers),
		StartedAtUTC:   s.startedAt.UTC().Format(time.RFC3339),
		CompletedAtUTC: completedAt.UTC().Format(time.RFC3339),
		ResponseData:   data,
		Status:         domain.SubmissionStatusComplete,
	}, nil
}

func (s *Session) summaryLocked(points int) domain.ResultSummary {
	c := countStatuses(s.status)
	return domain.ResultSummary{
		ExamID:         s.params.ExamID,
		UserID:         s.params.UserID,
		ExamProgressID: s.params.ExamProgressID,
		UserPackageID:  s.params.UserPackageID,
		ExamName:       s.params.ExamName,
		Answered:       c.attended,
		NotAnswered:    c.notAttended,
		Skipped:        c.skipped,
		TotalQuestions: len(s.questions),
		TimeTaken:      s.elapsed,
		Score:          points,
	}
}

// checkQuestionIDs rejects lists where two positions share an id; answers are keyed by id.
func checkQuestionIDs(questions []domain.Question) error {
	seen := make(map[int]struct{}, len(questions))
	for _, q := range questions {
		if _, ok := seen[q.ID]; ok {
			return fmt.Errorf("%w: %d", domain.ErrDuplicateQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}
