package exam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

/* ---------------- In-memory fakes satisfying Store and PurchaseReader ---------------- */

type fakeStore struct {
	mu        sync.Mutex
	exams     map[string]Exam
	questions map[string][]Question // examID -> questions
	attempts  map[string]Attempt
	answers   map[string][]Answer // attemptID -> answers
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		exams:     map[string]Exam{},
		questions: map[string][]Question{},
		attempts:  map[string]Attempt{},
		answers:   map[string][]Answer{},
	}
}

func (s *fakeStore) PutExam(_ context.Context, e Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams[e.ID] = e
	return nil
}

func (s *fakeStore) GetExam(_ context.Context, id string) (Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[id]
	if !ok {
		return Exam{}, fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	return e, nil
}

func (s *fakeStore) ListExams(context.Context, ListOpts) ([]ExamSummary, error) {
	return nil, nil
}

func (s *fakeStore) PutQuestion(_ context.Context, q Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ExamID] = append(s.questions[q.ExamID], q)
	return nil
}

func (s *fakeStore) ListQuestions(_ context.Context, examID string) ([]Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Question(nil), s.questions[examID]...), nil
}

func (s *fakeStore) CountQuestions(_ context.Context, examID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions[examID]), nil
}

func (s *fakeStore) CreateAttempt(_ context.Context, a Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.attempts {
		if ex.UserID == a.UserID && ex.ExamID == a.ExamID && ex.SubmittedAt == nil {
			return fmt.Errorf("unique constraint: active attempt exists")
		}
	}
	s.attempts[a.ID] = a
	return nil
}

func (s *fakeStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return Attempt{}, fmt.Errorf("attempt %s: %w", id, ErrNotFound)
	}
	return a, nil
}

func (s *fakeStore) ActiveAttempt(_ context.Context, userID, examID string) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.UserID == userID && a.ExamID == examID && a.SubmittedAt == nil {
			return a, nil
		}
	}
	return Attempt{}, fmt.Errorf("attempt: %w", ErrNotFound)
}

func (s *fakeStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Attempt{}
	for _, a := range s.attempts {
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeStore) FinalizeAttempt(_ context.Context, attemptID string, fin Finalization, answers []Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
	}
	if a.SubmittedAt != nil {
		return fmt.Errorf("attempt %s already submitted: %w", attemptID, ErrConflict)
	}
	sub := fin.SubmittedAt
	spent := fin.TimeSpentSec
	score := fin.Score
	a.SubmittedAt = &sub
	a.TimeSpentSec = &spent
	a.Score = &score
	a.CorrectCount = fin.CorrectCount
	a.WrongCount = fin.WrongCount
	s.attempts[attemptID] = a
	s.answers[attemptID] = answers
	return nil
}

func (s *fakeStore) ListAnswers(_ context.Context, attemptID string) ([]Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Answer(nil), s.answers[attemptID]...), nil
}

func (s *fakeStore) ExpiredAttempts(_ context.Context, now time.Time, grace time.Duration, limit int) ([]Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-grace)
	out := []Attempt{}
	for _, a := range s.attempts {
		if a.SubmittedAt != nil {
			continue
		}
		e := s.exams[a.ExamID]
		if e.Deadline(a.StartedAt).Before(cutoff) {
			out = append(out, a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakePurchases struct {
	mu        sync.Mutex
	completed map[string]bool // userID|planID
}

func newFakePurchases() *fakePurchases {
	return &fakePurchases{completed: map[string]bool{}}
}

func (p *fakePurchases) grant(userID, planID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed[userID+"|"+planID] = true
}

func (p *fakePurchases) HasCompletedPurchase(_ context.Context, userID, planID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed[userID+"|"+planID], nil
}

/* ---------------- fixtures ---------------- */

func seedExam(t *testing.T, store *fakeStore, examID, planID string, questions int) {
	t.Helper()
	ctx := context.Background()
	if err := store.PutExam(ctx, Exam{
		ID: examID, Name: "Test Exam", Subject: "Mathematics",
		DurationMin: 30, PlanID: planID, IsActive: true, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < questions; i++ {
		if err := store.PutQuestion(ctx, Question{
			ID: fmt.Sprintf("%s-q%d", examID, i+1), ExamID: examID,
			Question: "?", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
			CorrectAnswer: OptionA, Points: 1,
		}); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestService(store *fakeStore, purchases *fakePurchases) *Service {
	return NewService(store, NewEntitlements(purchases), nil)
}

var alice = Principal{ID: "alice", Role: RoleUser}

/* ---------------- tests ---------------- */

func TestStartCreatesAttempt(t *testing.T) {
	store := newFakeStore()
	seedExam(t, store, "ex1", "", 3)
	svc := newTestService(store, newFakePurchases())

	receipt, err := svc.Start(context.Background(), alice, "ex1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if receipt.AttemptID == "" || receipt.Resumed {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	a, err := store.GetAttempt(context.Background(), receipt.AttemptID)
	if err != nil {
		t.Fatal(err)
	}
	if a.TotalQuestions != 3 || a.Terminal() {
		t.Errorf("attempt = %+v", a)
	}
}

func TestStartIsIdempotentBeforeSubmit(t *testing.T) {
	store := newFakeStore()
	seedExam(t, store, "ex1", "", 3)
	svc := newTestService(store, newFakePurchases())
	ctx := context.Background()

	first, err := svc.Start(ctx, alice, "ex1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Start(ctx, alice, "ex1")
	if err != nil {
		t.Fatal(err)
	}
	if second.AttemptID != first.AttemptID {
		t.Errorf("resume returned different attempt: %s vs %s", second.AttemptID, first.AttemptID)
	}
	if !second.StartedAt.Equal(first.StartedAt) {
		t.Errorf("resume changed startedAt: %v vs %v", second.StartedAt, first.StartedAt)
	}
	if !second.Resumed {
		t.Error("second start not flagged as resume")
	}
}

func TestStartEntitlementGate(t *testing.T) {
	store := newFakeStore()
	purchases := newFakePurchases()
	seedExam(t, store, "exPaid", "plan-1", 2)
	svc := newTestService(store, purchases)
	ctx := context.Background()

	if _, err := svc.Start(ctx, alice, "exPaid"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	if _, err := svc.ExamForAttempt(ctx, alice, "exPaid"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("detail: want ErrForbidden, got %v", err)
	}

	// Entitlement is re-evaluated on every call: completing the purchase
	// flips both reads without any other state change.
	purchases.grant(alice.ID, "plan-1")
	if _, err := svc.Start(ctx, alice, "exPaid"); err != nil {
		t.Fatalf("start after purchase: %v", err)
	}
	if _, err := svc.ExamForAttempt(ctx, alice, "exPaid"); err != nil {
		t.Fatalf("detail after purchase: %v", err)
	}
}

func TestStartUnknownOrInactiveExam(t *testing.T) {
	store := newFakeStore()
	seedExam(t, store, "ex1", "", 1)
	inactive, _ := store.GetExam(context.Background(), "ex1")
	inactive.ID = "exOff"
	inactive.IsActive = false
	_ = store.PutExam(context.Background(), inactive)
	svc := newTestService(store, newFakePurchases())

	if _, err := svc.Start(context.Background(), alice, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown exam: want ErrNotFound, got %v", err)
	}
	if _, err := svc.Start(context.Background(), alice, "exOff"); !errors.Is(err, ErrNotFound) {
		t.Errorf("inactive exam: want ErrNotFound, got %v", err)
	}
}

func TestStartZeroQuestionExam(t *testing.T) {
	store := newFakeStore()
	seedExam(t, store, "exEmpty", "", 0)
	svc := newTestService(store, newFakePurchases())

	_, err := svc.Start(context.Background(), alice, "exEmpty")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
	if n := len(store.attempts); n != 0 {
		t.Errorf("attempt row created for zero-question exam: %d", n)
	}
}

func TestSubmitGradesAndCountsUnanswered(t *testing.T) {
	store := newFakeStore()
	seedExam(t, store, "ex1", "", 3) // all answers are A
	svc := newTestService(store, newFakePurchases())
	ctx := context.Background()

	receipt, err := svc.Start(ctx, alice, "ex1")
	if err != nil {
		t.Fatal(err)
	}

	// Answer 2 of 3: one right, one wrong. The third contributes to neither
	// count and produces no answer row.
	res, err := svc.Submit(ctx, alice, "ex1", receipt.AttemptID, map[string]Option{
		"ex1-q1": OptionA,
		"ex1-q2": OptionB,
	}, 120)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.CorrectCount != 1 || res.WrongCount != 1 || res.TotalQuestions != 3 {
		t.Errorf("result = %+v", res)
	}
	if res.Score != 33 {
		t.Errorf("score = %d, want 33", res.Score)
	}
	answers, _ := store.ListAnswers(ctx, receipt.AttemptID)
	if len(answers) != 2 {
		t.Errorf("answer rows = %d, want 2 (unanswered excluded)", len(answers))
	}

	a, _ := store.GetAttempt(ctx, receipt.AttemptID)
	if !a.Terminal() || a.Unanswered() != 1 {
		t.Errorf("attempt = %+v", a)
	}
	if a.TimeSpentSec == nil || *a.TimeSpentSec != 120 {
		t.Errorf("timeSpent = %v", a.TimeSpentSec)
	}
}

func TestSubmitGuards(t *testing.T) {
	store := newFakeStore()
	seedExam(t, store, "ex1", "", 2)
	svc := newTestService(store, newFakePurchases())
	ctx := context.Background()

	receipt, err := svc.Start(ctx, alice, "ex1")
	if err != nil {
		t.Fatal(err)
	}

	// Cross-account submission looks like NotFound, not Forbidden.
	mallory := Principal{ID: "mallory", Role: RoleUser}
	if _, err := svc.Submit(ctx, mallory, "ex1", receipt.AttemptID, nil, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-account: want ErrNotFound, got %v", err)
	}

	// Wrong exam id for the attempt.
	if _, err := svc.Submit(ctx, alice, "other", receipt.AttemptID, nil, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong exam: want ErrNotFound, got %v", err)
	}

	// Invalid option is rejected before any state changes.
	if _, err := svc.Submit(ctx, alice, "ex1", receipt.AttemptID, map[string]Option{"ex1-q1": "E"}, 0); !errors.Is(err, ErrInvalidState) {
		t.Errorf("bad option: want ErrInvalidState, got %v", err)
	}

	// Double submit: the second caller sees Conflict.
	if _, err := svc.Submit(ctx, alice, "ex1", receipt.AttemptID, map[string]Option{"ex1-q1": OptionA}, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(ctx, alice, "ex1", receipt.AttemptID, map[string]Option{"ex1-q1": OptionA}, 10); !errors.Is(err, ErrConflict) {
		t.Errorf("double submit: want ErrConflict, got %v", err)
	}
}

func TestSubmitIgnoresUnknownQuestionIDs(t *testing.T) {
	store := newFakeStore()
	seedExam(t, store, "ex1", "", 2)
	svc := newTestService(store, newFakePurchases())
	ctx := context.Background()

	receipt, _ := svc.Start(ctx, alice, "ex1")
	res, err := svc.Submit(ctx, alice, "ex1", receipt.AttemptID, map[string]Option{
		"ex1-q1":   OptionA,
		"phantom1": OptionB, // not part of the exam; silently dropped
	}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.CorrectCount != 1 || res.WrongCount != 0 {
		t.Errorf("result = %+v", res)
	}
	answers, _ := store.ListAnswers(ctx, receipt.AttemptID)
	if len(answers) != 1 {
		t.Errorf("answer rows = %d, want 1", len(answers))
	}
}

func TestResultReview(t *testing.T) {
	store := newFakeStore()
	seedExam(t, store, "ex1", "", 2)
	svc := newTestService(store, newFakePurchases())
	ctx := context.Background()

	receipt, _ := svc.Start(ctx, alice, "ex1")

	// Not terminal yet.
	if _, err := svc.Result(ctx, alice, receipt.AttemptID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("ungraded review: want ErrInvalidState, got %v", err)
	}

	if _, err := svc.Submit(ctx, alice, "ex1", receipt.AttemptID, map[string]Option{
		"ex1-q1": OptionA, "ex1-q2": OptionC,
	}, 30); err != nil {
		t.Fatal(err)
	}

	review, err := svc.Result(ctx, alice, receipt.AttemptID)
	if err != nil {
		t.Fatal(err)
	}
	if len(review.Answers) != 2 {
		t.Fatalf("review answers = %d", len(review.Answers))
	}
	bd, ok := review.BySubject["Mathematics"]
	if !ok || bd.Total != 2 || bd.Correct != 1 {
		t.Errorf("breakdown = %+v", review.BySubject)
	}

	// Other users cannot read it.
	if _, err := svc.Result(ctx, Principal{ID: "mallory"}, receipt.AttemptID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign review: want ErrNotFound, got %v", err)
	}
}
