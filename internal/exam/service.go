package exam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haseebafeef/mock-verse/internal/grading"
)

// Recorder receives lifecycle events for the audit log. May be nil.
type Recorder interface {
	Record(ctx context.Context, typ, key string, data any)
}

// Service is the attempt lifecycle controller: start/resume, submission
// grading and finalization. Each call is a stateless unit of work; all state
// lives in the Store.
type Service struct {
	store        Store
	entitlements *Entitlements
	events       Recorder
	now          func() time.Time
}

func NewService(store Store, entitlements *Entitlements, events Recorder) *Service {
	return &Service{
		store:        store,
		entitlements: entitlements,
		events:       events,
		now:          time.Now,
	}
}

// Start opens a new attempt or resumes the existing non-terminal one.
// Resume is idempotent: the caller gets the same attempt id and the original
// StartedAt, and derives remaining time from it.
func (s *Service) Start(ctx context.Context, p Principal, examID string) (StartReceipt, error) {
	ex, err := s.activeExam(ctx, examID)
	if err != nil {
		return StartReceipt{}, err
	}
	if err := s.entitlements.CheckAccess(ctx, p, ex); err != nil {
		return StartReceipt{}, err
	}

	if a, err := s.store.ActiveAttempt(ctx, p.ID, examID); err == nil {
		return StartReceipt{AttemptID: a.ID, StartedAt: a.StartedAt, Resumed: true}, nil
	} else if !IsNotFound(err) {
		return StartReceipt{}, err
	}

	n, err := s.store.CountQuestions(ctx, examID)
	if err != nil {
		return StartReceipt{}, err
	}
	if n == 0 {
		return StartReceipt{}, fmt.Errorf("exam %s has no questions: %w", examID, ErrInvalidState)
	}

	a := Attempt{
		ID:             uuid.NewString(),
		UserID:         p.ID,
		ExamID:         examID,
		TotalQuestions: n,
		StartedAt:      s.now().UTC().Truncate(time.Second),
	}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		// Lost a start/start race: the partial unique index rejected the second
		// insert, so surface the attempt the winner created.
		if existing, lerr := s.store.ActiveAttempt(ctx, p.ID, examID); lerr == nil {
			return StartReceipt{AttemptID: existing.ID, StartedAt: existing.StartedAt, Resumed: true}, nil
		}
		return StartReceipt{}, err
	}
	s.record(ctx, "attempt.started", a.ID, map[string]string{"user_id": p.ID, "exam_id": examID})
	return StartReceipt{AttemptID: a.ID, StartedAt: a.StartedAt}, nil
}

// Submit grades the answer set against the exam's current questions and
// finalizes the attempt. Exactly one concurrent caller succeeds; the rest get
// ErrConflict. Unanswered questions are excluded from the answer rows and
// from both counts.
func (s *Service) Submit(ctx context.Context, p Principal, examID, attemptID string, answers map[string]Option, timeSpentSec int) (Result, error) {
	if timeSpentSec < 0 {
		return Result{}, fmt.Errorf("negative time spent: %w", ErrInvalidState)
	}
	for qid, opt := range answers {
		if !opt.Valid() {
			return Result{}, fmt.Errorf("question %s: option %q: %w", qid, opt, ErrInvalidState)
		}
	}

	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Result{}, err
	}
	if a.UserID != p.ID || a.ExamID != examID {
		return Result{}, fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
	}
	if a.Terminal() {
		return Result{}, fmt.Errorf("attempt %s already submitted: %w", attemptID, ErrConflict)
	}

	questions, err := s.store.ListQuestions(ctx, examID)
	if err != nil {
		return Result{}, err
	}

	var correct, wrong int
	graded := make([]Answer, 0, len(answers))
	for _, q := range questions {
		sel, ok := answers[q.ID]
		if !ok {
			continue
		}
		isCorrect := sel == q.CorrectAnswer
		if isCorrect {
			correct++
		} else {
			wrong++
		}
		graded = append(graded, Answer{
			ID:             uuid.NewString(),
			AttemptID:      attemptID,
			QuestionID:     q.ID,
			UserID:         p.ID,
			SelectedOption: sel,
			IsCorrect:      isCorrect,
		})
	}

	fin := Finalization{
		SubmittedAt:  s.now().UTC().Truncate(time.Second),
		TimeSpentSec: timeSpentSec,
		Score:        grading.Percent(a.TotalQuestions, correct),
		CorrectCount: correct,
		WrongCount:   wrong,
	}
	if err := s.finalizeWithRetry(ctx, attemptID, fin, graded); err != nil {
		return Result{}, err
	}

	s.record(ctx, "attempt.submitted", attemptID, map[string]any{
		"user_id": p.ID, "exam_id": examID, "score": fin.Score,
	})
	return Result{
		AttemptID:      attemptID,
		Score:          fin.Score,
		CorrectCount:   correct,
		WrongCount:     wrong,
		TotalQuestions: a.TotalQuestions,
	}, nil
}

// finalizeWithRetry retries transient storage contention a bounded number of
// times. A claim that committed never re-runs: each retry starts from the
// conditional update again, so a prior winner turns retries into ErrConflict.
func (s *Service) finalizeWithRetry(ctx context.Context, attemptID string, fin Finalization, answers []Answer) error {
	const maxTries = 3
	var err error
	for i := 0; i < maxTries; i++ {
		err = s.store.FinalizeAttempt(ctx, attemptID, fin, answers)
		if err == nil || !isTransient(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 50 * time.Millisecond):
		}
	}
	return err
}

// ExamForAttempt is the candidate-facing read: entitlement-gated, questions
// redacted so the answer key never leaves the server before grading.
func (s *Service) ExamForAttempt(ctx context.Context, p Principal, examID string) (ExamView, error) {
	ex, err := s.activeExam(ctx, examID)
	if err != nil {
		return ExamView{}, err
	}
	if err := s.entitlements.CheckAccess(ctx, p, ex); err != nil {
		return ExamView{}, err
	}
	questions, err := s.store.ListQuestions(ctx, examID)
	if err != nil {
		return ExamView{}, err
	}
	for i := range questions {
		questions[i] = questions[i].Redacted()
	}
	return ExamView{
		ID:          ex.ID,
		Name:        ex.Name,
		Subject:     ex.Subject,
		DurationMin: ex.DurationMin,
		Questions:   questions,
	}, nil
}

// AttemptReview is the result screen: the terminal attempt, its graded
// answers joined with questions, and the subject breakdown.
type AttemptReview struct {
	Attempt   Attempt                          `json:"attempt"`
	Exam      Exam                             `json:"exam"`
	Answers   []ReviewAnswer                   `json:"answers"`
	BySubject map[string]grading.SubjectTotals `json:"by_subject"`
}

type ReviewAnswer struct {
	Question       Question `json:"question"`
	SelectedOption Option   `json:"selected_option"`
	IsCorrect      bool     `json:"is_correct"`
}

// Result returns the review for a terminal attempt owned by the principal.
// Answer keys are only revealed here, after grading.
func (s *Service) Result(ctx context.Context, p Principal, attemptID string) (AttemptReview, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return AttemptReview{}, err
	}
	if a.UserID != p.ID {
		return AttemptReview{}, fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
	}
	if !a.Terminal() {
		return AttemptReview{}, fmt.Errorf("attempt %s not submitted: %w", attemptID, ErrInvalidState)
	}

	ex, err := s.store.GetExam(ctx, a.ExamID)
	if err != nil {
		return AttemptReview{}, err
	}
	answers, err := s.store.ListAnswers(ctx, attemptID)
	if err != nil {
		return AttemptReview{}, err
	}
	questions, err := s.store.ListQuestions(ctx, a.ExamID)
	if err != nil {
		return AttemptReview{}, err
	}
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	review := make([]ReviewAnswer, 0, len(answers))
	correctness := make([]grading.Graded, 0, len(answers))
	for _, ans := range answers {
		q, ok := byID[ans.QuestionID]
		if !ok {
			continue
		}
		review = append(review, ReviewAnswer{
			Question:       q,
			SelectedOption: ans.SelectedOption,
			IsCorrect:      ans.IsCorrect,
		})
		correctness = append(correctness, grading.Graded{QuestionID: ans.QuestionID, IsCorrect: ans.IsCorrect})
	}

	// An exam carries a single subject, so the breakdown has one entry today.
	breakdown := grading.BreakdownBySubject(correctness, func(string) string { return ex.Subject })

	return AttemptReview{Attempt: a, Exam: ex, Answers: review, BySubject: breakdown}, nil
}

// Attempts lists the principal's own attempt history, newest first.
func (s *Service) Attempts(ctx context.Context, p Principal, limit, offset int) ([]Attempt, error) {
	return s.store.ListAttempts(ctx, AttemptListOpts{UserID: p.ID, Limit: limit, Offset: offset})
}

func (s *Service) activeExam(ctx context.Context, examID string) (Exam, error) {
	ex, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return Exam{}, err
	}
	if !ex.IsActive {
		return Exam{}, fmt.Errorf("exam %s inactive: %w", examID, ErrNotFound)
	}
	return ex, nil
}

func (s *Service) record(ctx context.Context, typ, key string, data any) {
	if s.events != nil {
		s.events.Record(ctx, typ, key, data)
	}
}

// IsNotFound reports whether err is the not-found sentinel.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || // sqlite
		strings.Contains(msg, "busy") || // sqlite busy_timeout exceeded
		strings.Contains(msg, "deadlock detected") || // postgres
		strings.Contains(msg, "could not serialize access") // postgres
}
