package domain

import "time"

// QuestionType distinguishes binary-choice from four-choice questions.
type QuestionType string

const (
	QuestionTypeBinary QuestionType = "binary"
	QuestionTypeFour   QuestionType = "four"
)

// Question is one exam item. Immutable once loaded for a session.
type Question struct {
	ID         int          `json:"id"`
	Prompt     string       `json:"prompt"`
	OptionA    string       `json:"optionA"`
	OptionB    string       `json:"optionB"`
	OptionC    string       `json:"optionC,omitempty"`
	OptionD    string       `json:"optionD,omitempty"`
	Correct    string       `json:"correctOption,omitempty"`
	Type       QuestionType `json:"type"`
	ImageURL   string       `json:"imageUrl,omitempty"`
	CategoryID int          `json:"categoryId"`
}

// Options returns the option letters a user may select for this question.
func (q Question) Options() []string {
	if q.Type == QuestionTypeBinary {
		return []string{"A", "B"}
	}
	return []string{"A", "B", "C", "D"}
}

// HasOption reports whether letter is selectable for this question.
func (q Question) HasOption(letter string) bool {
	for _, opt := range q.Options() {
		if opt == letter {
			return true
		}
	}
	return false
}

// Public returns a copy without the correct-option marker, safe to send to clients.
func (q Question) Public() Question {
	q.Correct = ""
	return q
}

// QuestionStatus is the per-position progress marker.
type QuestionStatus string

const (
	StatusNotAttended QuestionStatus = "not_attended"
	StatusSkipped     QuestionStatus = "skipped"
	StatusAttended    QuestionStatus = "attended"
)

// Phase is the macro state of a session.
type Phase string

const (
	PhaseLoading     Phase = "loading"
	PhaseUnavailable Phase = "unavailable"
	PhaseActive      Phase = "active"
	PhaseConfirming  Phase = "confirming"
	PhaseSubmitting  Phase = "submitting"
	PhaseTerminated  Phase = "terminated"
	PhaseCancelled   Phase = "cancelled"
)

// AnswerRecord pairs a question with the selected option and the seconds spent before selecting.
type AnswerRecord struct {
	QuestionID int    `json:"questionId"`
	Option     string `json:"selectedOption"`
	TimeTaken  int    `json:"timeTaken"`
}

// ExamParams are supplied by the navigation host when a session is constructed.
type ExamParams struct {
	UserID          int        `json:"userId" validate:"gte=0"`
	ExamID          int        `json:"examId" validate:"required,gt=0"`
	ExamName        string     `json:"examName" validate:"max=200"`
	ExamDescription string     `json:"examDescription"`
	TimeLimit       int        `json:"timeLimit" validate:"gte=0,lte=1440"`
	ExamProgressID  int        `json:"examProgressId" validate:"required,gt=0"`
	UserPackageID   int        `json:"userPackageId" validate:"gte=0"`
	PackageID       int        `json:"packageId" validate:"gte=0"`
	Questions       []Question `json:"questions,omitempty" validate:"omitempty,unique=ID,dive"`
}

// ProgressUpdate is the incremental save payload; ResponseData carries the full answer set.
type ProgressUpdate struct {
	UserExamProgressID int    `json:"userExamProgressId"`
	UserID             int    `json:"userId"`
	ExamID             int    `json:"examId"`
	SectionID          int    `json:"sectionId"`
	ResponseData       string `json:"responseData"`
}

// SubmissionStatusComplete marks a finished attempt.
const SubmissionStatusComplete = "complete"

// Submission is the final record sent when a session ends.
type Submission struct {
	ID             int    `json:"id"`
	UserID         int    `json:"userId"`
	PackageID      int    `json:"packageId"`
	UserPackageID  int    `json:"userPackageId"`
	ExamID         int    `json:"examId"`
	IsCompleted    bool   `json:"isCompleted"`
	Score          int    `json:"score"`
	StartedAtUTC   string `json:"startedAtUtc"`
	CompletedAtUTC string `json:"completedAtUtc"`
	ResponseData   string `json:"responseData"`
	Status         string `json:"status"`
}

// ResultSummary is sent to the navigation host after a successful submission.
type ResultSummary struct {
	ExamID         int    `json:"examId"`
	UserID         int    `json:"userId"`
	ExamProgressID int    `json:"examProgressId"`
	UserPackageID  int    `json:"userPackageId"`
	ExamName       string `json:"examName"`
	Answered       int    `json:"answered"`
	NotAnswered    int    `json:"notAnswered"`
	Skipped        int    `json:"skipped"`
	TotalQuestions int    `json:"totalQuestions"`
	TimeTaken      int    `json:"timeTaken"`
	Score          int    `json:"score"`
}

// CancelSignal is sent when the user confirms leaving an active session.
type CancelSignal struct {
	ExamProgressID int `json:"examProgressId"`
	ExamID         int `json:"examId"`
	UserID         int `json:"userId"`
}

// NoticeKind classifies transient user-facing messages.
type NoticeKind string

const (
	NoticeSelectAnswer    NoticeKind = "select_answer"
	NoticeIncomplete      NoticeKind = "incomplete"
	NoticeSubmitFailed    NoticeKind = "submit_failed"
	NoticeRetrySubmission NoticeKind = "retry_submission"
	NoticeTimeUp          NoticeKind = "time_up"
	NoticeNoQuestions     NoticeKind = "no_questions"
)

// Notice is a transient message for the user; nothing is retained after it is shown.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// ConfirmPrompt is the content of the submission-confirmation prompt.
type ConfirmPrompt struct {
	Complete   bool   `json:"complete"`
	Unanswered int    `json:"unanswered"`
	Skipped    int    `json:"skipped"`
	Message    string `json:"message"`
}

// TimerState is what a host needs to render the clocks.
type TimerState struct {
	Elapsed   int  `json:"elapsed"`
	Remaining *int `json:"remaining,omitempty"`
	TimeBound bool `json:"timeBound"`
}

// SessionSnapshot is a read-only copy of a session's state.
type SessionSnapshot struct {
	ExamProgressID int              `json:"examProgressId"`
	ExamID         int              `json:"examId"`
	ExamName       string           `json:"examName"`
	Phase          Phase            `json:"phase"`
	Active         bool             `json:"active"`
	ActiveIndex    int              `json:"activeIndex"`
	QuestionCount  int              `json:"questionCount"`
	Question       *Question        `json:"question,omitempty"`
	Statuses       []QuestionStatus `json:"statuses"`
	Answers        []AnswerRecord   `json:"answers"`
	Timers         TimerState       `json:"timers"`
	Prompt         *ConfirmPrompt   `json:"prompt,omitempty"`
	StartedAt      time.Time        `json:"startedAt"`
}
