package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(map[int][]domain.Question{
			3: sampleQuestions(),
		}),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	qs, err := repo.GetQuestions(context.Background(), 3, 0)
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if len(qs) != 2 || loader.calls != 1 {
		t.Fatalf("expected 2 questions from one load, got %d questions, %d loads", len(qs), loader.calls)
	}

	if _, err := repo.GetQuestions(context.Background(), 3, 0); err != nil {
		t.Fatalf("get questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(map[int][]domain.Question{3: sampleQuestions()}),
	}
	repo := NewQuestionRepository(loader, time.Minute)
	now := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuestions(context.Background(), 3, 0)
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuestions(context.Background(), 3, 0)
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, got %d loads", loader.calls)
	}
}

func TestQuestionRepositoryUnknownExam(t *testing.T) {
	repo := NewQuestionRepository(NewStaticQuestionLoader(nil), time.Minute)
	if _, err := repo.GetQuestions(context.Background(), 9, 0); !errors.Is(err, domain.ErrExamNotFound) {
		t.Fatalf("expected exam not found, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, examID, sectionID int) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, examID, sectionID)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Prompt: "2 + 2 = ?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "6", Correct: "B", Type: domain.QuestionTypeFour},
		{ID: 2, Prompt: "The sky is green.", OptionA: "True", OptionB: "False", Correct: "B", Type: domain.QuestionTypeBinary},
	}
}
