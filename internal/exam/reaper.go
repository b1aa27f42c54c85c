package exam

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/haseebafeef/mock-verse/internal/grading"
)

// Reaper force-finalizes attempts whose time allowance elapsed without a
// client submit, so an abandoned tab cannot hold the one-active-attempt slot
// forever. It reuses the same conditional claim as Submit: a client racing
// the sweep still produces exactly one grading pass.
type Reaper struct {
	store    Store
	events   Recorder
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

func NewReaper(store Store, events Recorder, interval, grace time.Duration) *Reaper {
	return &Reaper{
		store:    store,
		events:   events,
		interval: interval,
		grace:    grace,
		now:      time.Now,
	}
}

// Run sweeps until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := r.Sweep(ctx); err != nil {
				log.Printf("reaper: sweep: %v", err)
			} else if n > 0 {
				log.Printf("reaper: expired %d attempt(s)", n)
			}
		}
	}
}

// Sweep finalizes every overdue attempt with an empty answer set: zero
// correct, zero wrong, score 0, timeSpent pinned to the full allowance.
// Returns how many attempts this sweep actually claimed.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	overdue, err := r.store.ExpiredAttempts(ctx, r.now(), r.grace, 100)
	if err != nil {
		return 0, err
	}
	claimed := 0
	for _, a := range overdue {
		ex, err := r.store.GetExam(ctx, a.ExamID)
		if err != nil {
			continue
		}
		fin := Finalization{
			SubmittedAt:  r.now().UTC().Truncate(time.Second),
			TimeSpentSec: ex.DurationMin * 60,
			Score:        grading.Percent(a.TotalQuestions, 0),
			CorrectCount: 0,
			WrongCount:   0,
		}
		err = r.store.FinalizeAttempt(ctx, a.ID, fin, nil)
		if err != nil {
			// A client submit won the claim in the meantime; that is fine.
			if errors.Is(err, ErrConflict) {
				continue
			}
			return claimed, err
		}
		claimed++
		if r.events != nil {
			r.events.Record(ctx, "attempt.expired", a.ID, map[string]string{
				"user_id": a.UserID, "exam_id": a.ExamID,
			})
		}
	}
	return claimed, nil
}
