package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"quiz-session-service/internal/domain"
)

func TestResponseStoreSavesSnapshotsAndSubmission(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewResponseStore(newClient(mr), time.Hour)

	err = store.SaveProgress(ctx, domain.ProgressUpdate{
		UserExamProgressID: 42,
		UserID:             7,
		ExamID:             3,
		ResponseData:       `[{"questionId":1,"selectedOption":"B","timeTaken":4}]`,
	})
	if err != nil {
		t.Fatalf("save progress: %v", err)
	}
	got, _ := mr.Get("exam:progress:42:responses")
	if got != `[{"questionId":1,"selectedOption":"B","timeTaken":4}]` {
		t.Fatalf("unexpected snapshot %q", got)
	}

	final := `[{"questionId":1,"selectedOption":"B","timeTaken":4},{"questionId":2,"selectedOption":"A","timeTaken":2}]`
	err = store.SubmitExam(ctx, domain.Submission{
		ID:             42,
		UserID:         7,
		PackageID:      2,
		UserPackageID:  5,
		ExamID:         3,
		IsCompleted:    true,
		Score:          1,
		StartedAtUTC:   "2024-11-22T09:00:00Z",
		CompletedAtUTC: "2024-11-22T09:05:00Z",
		ResponseData:   final,
		Status:         domain.SubmissionStatusComplete,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	sub, ok, err := store.Submission(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("expected stored submission, ok=%v err=%v", ok, err)
	}
	if !sub.IsCompleted || sub.Score != 1 || sub.Status != "complete" || sub.UserPackageID != 5 {
		t.Fatalf("unexpected submission %+v", sub)
	}

	// late snapshot from a slow forwarder must not overwrite the final answers
	_ = store.SaveProgress(ctx, domain.ProgressUpdate{UserExamProgressID: 42, ResponseData: "[]"})
	got, _ = mr.Get("exam:progress:42:responses")
	if got != final {
		t.Fatalf("expected final answers kept, got %q", got)
	}
}

func TestResponseStoreSaveProgressTTLAndIncompleteSubmission(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewResponseStore(newClient(mr), time.Hour)
	if err := store.SaveProgress(ctx, domain.ProgressUpdate{UserExamProgressID: 5, ResponseData: "[1]"}); err != nil {
		t.Fatalf("save progress: %v", err)
	}
	if ttl := mr.TTL("exam:progress:5:responses"); ttl != time.Hour {
		t.Fatalf("expected one hour ttl, got %v", ttl)
	}

	// a failed forced submission is stored incomplete and must not block later saves
	mr.HSet("exam:progress:5:submission", "isCompleted", "0")
	if err := store.SaveProgress(ctx, domain.ProgressUpdate{UserExamProgressID: 5, ResponseData: "[2]"}); err != nil {
		t.Fatalf("save progress: %v", err)
	}
	if got, _ := mr.Get("exam:progress:5:responses"); got != "[2]" {
		t.Fatalf("expected snapshot overwritten, got %q", got)
	}

	forever := NewResponseStore(newClient(mr), 0)
	if err := forever.SaveProgress(ctx, domain.ProgressUpdate{UserExamProgressID: 6, ResponseData: "[3]"}); err != nil {
		t.Fatalf("save progress: %v", err)
	}
	if ttl := mr.TTL("exam:progress:6:responses"); ttl != 0 {
		t.Fatalf("expected no ttl, got %v", ttl)
	}
}

func TestResponseStoreMissingSubmission(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	_, ok, err := NewResponseStore(newClient(mr), 0).Submission(context.Background(), 9)
	if err != nil || ok {
		t.Fatalf("expected no submission, ok=%v err=%v", ok, err)
	}
}
