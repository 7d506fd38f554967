package app

import (
	"fmt"

	"quiz-session-service/internal/domain"
)

// score counts answers whose selected option equals the question's correct marker.
func score(questions []domain.Question, answers *answerSet) int {
	total := 0
	for _, q := range questions {
		rec, ok := answers.get(q.ID)
		if !ok {
			continue
		}
		if q.Correct != "" && rec.Option == q.Correct {
			total++
		}
	}
	return total
}

type statusCounts struct {
	attended    int
	skipped     int
	notAttended int
}

func countStatuses(statuses []domain.QuestionStatus) statusCounts {
	var c statusCounts
	for _, st := range statuses {
		switch st {
		case domain.StatusAttended:
			c.attended++
		case domain.StatusSkipped:
			c.skipped++
		default:
			c.notAttended++
		}
	}
	return c
}

func (c statusCounts) complete() bool {
	return c.skipped == 0 && c.notAttended == 0
}

func confirmPrompt(statuses []domain.QuestionStatus) domain.ConfirmPrompt {
	c := countStatuses(statuses)
	if c.complete() {
		return domain.ConfirmPrompt{
			Complete: true,
			Message:  "All questions answered. Submit the exam?",
		}
	}
	return domain.ConfirmPrompt{
		Unanswered: c.notAttended,
		Skipped:    c.skipped,
		Message:    fmt.Sprintf("%d question(s) unanswered and %d skipped. Submit anyway?", c.notAttended, c.skipped),
	}
}
