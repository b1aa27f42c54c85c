package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/haseebafeef/mock-verse/internal/exam"
)

// Runner drives one attempt end to end in a terminal: start (or resume),
// prompt per question, countdown in the background, auto-submit on expiry.
type Runner struct {
	Client *Client
	In     io.Reader
	Out    io.Writer
	Log    *slog.Logger
}

// Run takes the exam and returns the graded result. Answers entered so far
// are what gets submitted when the clock runs out.
func (r *Runner) Run(ctx context.Context, examID string) (exam.Result, error) {
	view, err := r.Client.Exam(ctx, examID)
	if err != nil {
		return exam.Result{}, err
	}
	receipt, err := r.Client.StartAttempt(ctx, examID)
	if err != nil {
		return exam.Result{}, err
	}

	remaining := Remaining(view.DurationMin, receipt.StartedAt, time.Now())
	if receipt.Resumed {
		r.Log.Info("resuming attempt", "attempt_id", receipt.AttemptID, "remaining", remaining.Round(time.Second))
	}
	fmt.Fprintf(r.Out, "%s — %d questions, %s on the clock\n\n",
		view.Name, len(view.Questions), remaining.Round(time.Second))

	var (
		mu      sync.Mutex
		answers = map[string]exam.Option{}
	)
	submit := func() error {
		mu.Lock()
		snapshot := make(map[string]exam.Option, len(answers))
		for k, v := range answers {
			snapshot[k] = v
		}
		mu.Unlock()
		spent := int(time.Since(receipt.StartedAt) / time.Second)
		res, err := r.Client.SubmitAttempt(ctx, examID, receipt.AttemptID, snapshot, spent)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.Out, "\nScore: %d%% (%d correct, %d wrong, %d total)\n",
			res.Score, res.CorrectCount, res.WrongCount, res.TotalQuestions)
		return nil
	}

	cd := NewCountdown(remaining, submit, nil)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- cd.Run(runCtx) }()

	scanner := bufio.NewScanner(r.In)
	for i, q := range view.Questions {
		fmt.Fprintf(r.Out, "Q%d. %s\n  A) %s\n  B) %s\n  C) %s\n  D) %s\n",
			i+1, q.Question, q.OptionA, q.OptionB, q.OptionC, q.OptionD)
		fmt.Fprint(r.Out, "answer (A-D, enter to skip): ")
		if !scanner.Scan() {
			break
		}
		in := exam.Option(strings.ToUpper(strings.TrimSpace(scanner.Text())))
		if in.Valid() {
			mu.Lock()
			answers[q.ID] = in
			mu.Unlock()
		}
		select {
		case err := <-runDone:
			// Time expired mid-entry; the auto-submit already went out.
			return r.resolve(ctx, receipt.AttemptID, err)
		default:
		}
	}

	if err := cd.SubmitNow(); err != nil && !errors.Is(err, ErrAlreadySubmitted) {
		return r.resolve(ctx, receipt.AttemptID, err)
	}
	return r.resolve(ctx, receipt.AttemptID, <-runDone)
}

// resolve maps "already submitted" races onto the stored result instead of
// failing: a Conflict at submit time means a result exists to show.
func (r *Runner) resolve(ctx context.Context, attemptID string, err error) (exam.Result, error) {
	var apiErr *APIError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict) {
		return exam.Result{}, err
	}
	review, rerr := r.Client.Result(ctx, attemptID)
	if rerr != nil {
		return exam.Result{}, rerr
	}
	a := review.Attempt
	res := exam.Result{
		AttemptID:      a.ID,
		CorrectCount:   a.CorrectCount,
		WrongCount:     a.WrongCount,
		TotalQuestions: a.TotalQuestions,
	}
	if a.Score != nil {
		res.Score = *a.Score
	}
	return res, nil
}
