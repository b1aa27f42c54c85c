package exam

import (
	"context"
	"testing"
	"time"
)

func TestReaperSweep(t *testing.T) {
	store := newFakeStore()
	seedExam(t, store, "ex1", "", 2) // 30 minute allowance
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	overdue := Attempt{ID: "a-over", UserID: "u1", ExamID: "ex1", TotalQuestions: 2,
		StartedAt: now.Add(-2 * time.Hour)}
	inWindow := Attempt{ID: "a-fresh", UserID: "u2", ExamID: "ex1", TotalQuestions: 2,
		StartedAt: now.Add(-10 * time.Minute)}
	for _, a := range []Attempt{overdue, inWindow} {
		if err := store.CreateAttempt(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	r := NewReaper(store, nil, time.Minute, 5*time.Minute)
	r.now = func() time.Time { return now }

	n, err := r.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("claimed = %d, want 1", n)
	}

	got, _ := store.GetAttempt(ctx, "a-over")
	if !got.Terminal() {
		t.Fatal("overdue attempt still open")
	}
	if got.Score == nil || *got.Score != 0 || got.CorrectCount != 0 || got.WrongCount != 0 {
		t.Errorf("expired grade = %+v", got)
	}
	if got.TimeSpentSec == nil || *got.TimeSpentSec != 30*60 {
		t.Errorf("timeSpent = %v, want full allowance", got.TimeSpentSec)
	}

	fresh, _ := store.GetAttempt(ctx, "a-fresh")
	if fresh.Terminal() {
		t.Error("in-window attempt was expired")
	}

	// Nothing left to claim; the sweep is idempotent.
	n, err = r.Sweep(ctx)
	if err != nil || n != 0 {
		t.Errorf("second sweep claimed %d, err = %v", n, err)
	}
}

func TestReaperGraceHoldsBack(t *testing.T) {
	store := newFakeStore()
	seedExam(t, store, "ex1", "", 1) // 30 minute allowance
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	// Deadline passed 2 minutes ago, inside the 5 minute grace window that
	// leaves room for a slow client submit to land first.
	a := Attempt{ID: "a1", UserID: "u1", ExamID: "ex1", TotalQuestions: 1,
		StartedAt: now.Add(-32 * time.Minute)}
	if err := store.CreateAttempt(ctx, a); err != nil {
		t.Fatal(err)
	}

	r := NewReaper(store, nil, time.Minute, 5*time.Minute)
	r.now = func() time.Time { return now }

	if n, err := r.Sweep(ctx); err != nil || n != 0 {
		t.Fatalf("inside grace: claimed %d, err = %v", n, err)
	}

	r.now = func() time.Time { return now.Add(4 * time.Minute) }
	if n, err := r.Sweep(ctx); err != nil || n != 1 {
		t.Fatalf("past grace: claimed %d, err = %v", n, err)
	}
}
