package app

import (
	"context"

	"github.com/rs/zerolog"
	"quiz-session-service/internal/domain"
)

// QuestionSource supplies the ordered questions of an exam (cache, database or remote API).
type QuestionSource interface {
	GetQuestions(ctx context.Context, examID, sectionID int) ([]domain.Question, error)
}

// ResponsePersistence accepts incremental answer snapshots and the final submission.
// Both calls carry full snapshots, so repeating one is harmless.
type ResponsePersistence interface {
	SaveProgress(ctx context.Context, update domain.ProgressUpdate) error
	SubmitExam(ctx context.Context, submission domain.Submission) error
}

// NavigationHost is the surrounding application. Implementations must not call back
// into the session from these methods.
type NavigationHost interface {
	Notify(notice domain.Notice)
	Finished(summary domain.ResultSummary)
	Cancelled(signal domain.CancelSignal)
}

// UserResolver reads the authenticated user when the host did not pass one.
type UserResolver interface {
	UserID(ctx context.Context) (int, error)
}

// Deps are the collaborators of a Session.
type Deps struct {
	Questions QuestionSource
	Responses ResponsePersistence
	Host      NavigationHost
	Auth      UserResolver
	// Loading is toggled around the fallback fetch and the final submission.
	Loading func(bool)
	Log     zerolog.Logger
}

type nopHost struct{}

func (nopHost) Notify(domain.Notice)          {}
func (nopHost) Finished(domain.ResultSummary) {}
func (nopHost) Cancelled(domain.CancelSignal) {}
