package app

import (
	"testing"

	"quiz-session-service/internal/domain"
)

func TestAnswerSetUpsertKeepsFirstPosition(t *testing.T) {
	set := newAnswerSet()
	if got, _ := set.marshal(); got != "[]" {
		t.Fatalf("expected empty array, got %s", got)
	}

	set.upsert(domain.AnswerRecord{QuestionID: 1, Option: "A", TimeTaken: 3})
	set.upsert(domain.AnswerRecord{QuestionID: 2, Option: "B", TimeTaken: 1})
	set.upsert(domain.AnswerRecord{QuestionID: 1, Option: "C", TimeTaken: 9})

	got, err := set.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"questionId":1,"selectedOption":"C","timeTaken":9},{"questionId":2,"selectedOption":"B","timeTaken":1}]`
	if got != want {
		t.Fatalf("unexpected payload\n got %s\nwant %s", got, want)
	}
}

func TestScoreCountsCorrectSelections(t *testing.T) {
	questions := []domain.Question{
		{ID: 1, Correct: "A"},
		{ID: 2, Correct: "B"},
		{ID: 3, Correct: "C"},
		{ID: 4},
	}
	set := newAnswerSet()
	set.upsert(domain.AnswerRecord{QuestionID: 1, Option: "A"})
	set.upsert(domain.AnswerRecord{QuestionID: 2, Option: "D"})
	set.upsert(domain.AnswerRecord{QuestionID: 4, Option: "A"})

	if got := score(questions, set); got != 1 {
		t.Fatalf("expected score 1, got %d", got)
	}
}

func TestConfirmPromptCopy(t *testing.T) {
	complete := confirmPrompt([]domain.QuestionStatus{domain.StatusAttended, domain.StatusAttended})
	if !complete.Complete || complete.Message != "All questions answered. Submit the exam?" {
		t.Fatalf("unexpected complete prompt %+v", complete)
	}

	partial := confirmPrompt([]domain.QuestionStatus{
		domain.StatusAttended, domain.StatusSkipped, domain.StatusNotAttended, domain.StatusNotAttended,
	})
	if partial.Complete || partial.Unanswered != 2 || partial.Skipped != 1 {
		t.Fatalf("unexpected counts %+v", partial)
	}
	if partial.Message != "2 question(s) unanswered and 1 skipped. Submit anyway?" {
		t.Fatalf("unexpected message %q", partial.Message)
	}
}

func TestReloadShortcuts(t *testing.T) {
	for _, key := range []string{"F5", "Ctrl+R", "ctrl + shift + r", "Meta+R"} {
		if !isReloadShortcut(key) {
			t.Fatalf("expected %q to be a reload shortcut", key)
		}
	}
	for _, key := range []string{"r", "Ctrl+S", "Enter"} {
		if isReloadShortcut(key) {
			t.Fatalf("did not expect %q to be a reload shortcut", key)
		}
	}
}
