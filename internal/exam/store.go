package exam

import (
	"context"
	"time"
)

type ListOpts struct {
	ActiveOnly bool
	PlanIDs    []string // restrict to exams gated by one of these plans
	Limit      int
	Offset     int
}

type AttemptListOpts struct {
	UserID string
	ExamID string
	Limit  int
	Offset int
}

// Finalization is the terminal update applied to an attempt exactly once.
type Finalization struct {
	SubmittedAt  time.Time
	TimeSpentSec int
	Score        int
	CorrectCount int
	WrongCount   int
}

// Store is the transactional record store behind the attempt lifecycle.
//
// FinalizeAttempt is the concurrency-critical operation: it must claim the
// attempt with a conditional update guarded by submitted_at IS NULL and write
// the answer rows in the same transaction, so at most one caller observes
// success and a partial grade is never externally visible.
type Store interface {
	PutExam(ctx context.Context, e Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)
	ListExams(ctx context.Context, opts ListOpts) ([]ExamSummary, error)

	PutQuestion(ctx context.Context, q Question) error
	// ListQuestions returns full rows including the answer key; callers that
	// serve candidates must redact.
	ListQuestions(ctx context.Context, examID string) ([]Question, error)
	CountQuestions(ctx context.Context, examID string) (int, error)

	CreateAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	// ActiveAttempt returns the single non-terminal attempt for the pair, or
	// ErrNotFound.
	ActiveAttempt(ctx context.Context, userID, examID string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)

	FinalizeAttempt(ctx context.Context, attemptID string, fin Finalization, answers []Answer) error
	ListAnswers(ctx context.Context, attemptID string) ([]Answer, error)

	// ExpiredAttempts lists non-terminal attempts whose deadline plus grace
	// elapsed before now. Used by the reaper only.
	ExpiredAttempts(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]Attempt, error)
}
