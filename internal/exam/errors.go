package exam

import "errors"

// Failure taxonomy for the attempt lifecycle. Callers match with errors.Is;
// the HTTP layer maps each sentinel to a status code. No retries happen at
// this layer except for transient storage contention inside Submit.
var (
	// ErrNotFound: exam, attempt or question absent or inactive.
	ErrNotFound = errors.New("not found")
	// ErrForbidden: entitlement denied (plan required).
	ErrForbidden = errors.New("forbidden")
	// ErrConflict: attempt already submitted, or lost the finalization race.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState: the operation cannot apply, e.g. a zero-question exam.
	ErrInvalidState = errors.New("invalid state")
)
