package memory

import (
	"context"
	"testing"

	"quiz-session-service/internal/domain"
)

func TestResponseStoreKeepsLatestSnapshot(t *testing.T) {
	store := NewResponseStore()
	ctx := context.Background()

	_ = store.SaveProgress(ctx, domain.ProgressUpdate{UserExamProgressID: 42, ResponseData: `[{"questionId":1}]`})
	_ = store.SaveProgress(ctx, domain.ProgressUpdate{UserExamProgressID: 42, ResponseData: `[{"questionId":1},{"questionId":2}]`})

	p, ok := store.Progress(42)
	if !ok || p.ResponseData != `[{"questionId":1},{"questionId":2}]` {
		t.Fatalf("expected latest snapshot, got %+v", p)
	}

	_ = store.SubmitExam(ctx, domain.Submission{ID: 42, IsCompleted: true, Score: 2, ResponseData: p.ResponseData})
	_ = store.SaveProgress(ctx, domain.ProgressUpdate{UserExamProgressID: 42, ResponseData: `[]`})
	if p, _ := store.Progress(42); p.ResponseData == `[]` {
		t.Fatalf("late snapshot must not overwrite a completed attempt")
	}
	if sub, ok := store.Submission(42); !ok || sub.Score != 2 {
		t.Fatalf("expected submission, got %+v", sub)
	}
}
