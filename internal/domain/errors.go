package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no live session exists for an exam progress id.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionExists is returned when a live session is already registered for an exam progress id.
	ErrSessionExists = errors.New("quiz session already running")
	// ErrExamNotFound indicates the question source has nothing for an exam.
	ErrExamNotFound = errors.New("exam not found")
	// ErrNoQuestions is returned by every operation of a session that has no questions.
	ErrNoQuestions = errors.New("no questions available")
	// ErrSessionInactive is returned once a session has been submitted or cancelled.
	ErrSessionInactive = errors.New("quiz session is not active")
	// ErrPromptOpen rejects navigation while the submission prompt is showing.
	ErrPromptOpen = errors.New("submission prompt is open")
	// ErrPromptNotOpen rejects confirm/cancel without an open prompt.
	ErrPromptNotOpen = errors.New("submission prompt is not open")
	// ErrQuestionIndex indicates a position outside [0, questionCount).
	ErrQuestionIndex = errors.New("question index out of range")
	// ErrInvalidOption indicates an option letter the question does not offer.
	ErrInvalidOption = errors.New("invalid option")
	// ErrExitNeedsConfirmation is returned by the navigation guard while a session is active.
	ErrExitNeedsConfirmation = errors.New("leaving an active exam requires confirmation")
	// ErrDuplicateQuestion rejects a question list where two positions share an id.
	ErrDuplicateQuestion = errors.New("duplicate question id")
	// ErrSubmissionSuperseded is returned when a submission result arrives for a stale attempt.
	ErrSubmissionSuperseded = errors.New("submission attempt superseded")
)
