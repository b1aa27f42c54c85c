package client

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadySubmitted is returned by SubmitNow when the countdown has
// already fired (or finished running).
var ErrAlreadySubmitted = errors.New("already submitted")

// SubmitFunc pushes whatever answers are currently held to the server.
type SubmitFunc func() error

// Countdown is the client-side timer and auto-submitter: a single
// cooperatively-scheduled loop that ticks once per interval and fires the
// submit function exactly once, either when the clock runs out or on manual
// request. Because the fire happens inside the loop, a slow submit cannot be
// raced by a concurrent tick; manual requests arriving after the fire get
// ErrAlreadySubmitted.
type Countdown struct {
	remaining int // seconds
	interval  time.Duration
	submit    SubmitFunc
	onTick    func(remaining int)

	manual chan chan error
	done   chan struct{}
}

// NewCountdown builds a countdown over the given time budget. onTick may be
// nil; interval is exposed for tests and defaults to one second.
func NewCountdown(remaining time.Duration, submit SubmitFunc, onTick func(remaining int)) *Countdown {
	secs := int(remaining / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &Countdown{
		remaining: secs,
		interval:  time.Second,
		submit:    submit,
		onTick:    onTick,
		manual:    make(chan chan error),
		done:      make(chan struct{}),
	}
}

// Remaining derives the time budget left on a resumed attempt from the
// original start instant, clamped at zero. A closed tab therefore cannot
// extend effective time: remounting picks up the countdown where the wall
// clock says it should be.
func Remaining(durationMin int, startedAt, now time.Time) time.Duration {
	d := time.Duration(durationMin)*time.Minute - now.Sub(startedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Run ticks until the attempt is submitted or ctx is cancelled (view torn
// down). It returns the submit error, or ctx.Err() on cancellation.
func (c *Countdown) Run(ctx context.Context) error {
	defer close(c.done)

	// Expired before we even started ticking: fire immediately.
	if c.remaining <= 0 {
		return c.submit()
	}

	t := time.NewTicker(c.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case reply := <-c.manual:
			err := c.submit()
			reply <- err
			return err

		case <-t.C:
			c.remaining--
			if c.onTick != nil {
				c.onTick(c.remaining)
			}
			if c.remaining <= 0 {
				return c.submit()
			}
		}
	}
}

// SubmitNow requests an early submit and waits for the outcome. Safe to call
// from any goroutine; after the countdown fired it reports
// ErrAlreadySubmitted instead of submitting again.
func (c *Countdown) SubmitNow() error {
	reply := make(chan error, 1)
	select {
	case c.manual <- reply:
		return <-reply
	case <-c.done:
		return ErrAlreadySubmitted
	}
}
