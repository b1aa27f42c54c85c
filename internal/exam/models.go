package exam

import "time"

// Role is the coarse access level carried by a Principal. Role "admin" unlocks
// management surfaces only; taking an exam is entitlement-gated for everyone.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the authenticated caller, validated once at the auth boundary
// and passed explicitly into every operation.
type Principal struct {
	ID   string
	Role Role
}

// Option is one of the four answer choices of a question.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

type Exam struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Subject     string    `json:"subject"`
	DurationMin int       `json:"duration"`          // minutes, > 0
	PlanID      string    `json:"plan_id,omitempty"` // empty means free
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Deadline is the instant the attempt's time allowance runs out.
func (e Exam) Deadline(startedAt time.Time) time.Time {
	return startedAt.Add(time.Duration(e.DurationMin) * time.Minute)
}

type Question struct {
	ID            string    `json:"id"`
	ExamID        string    `json:"exam_id"`
	Question      string    `json:"question"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectAnswer Option    `json:"correct_answer,omitempty"`
	Points        int       `json:"points"`
	CreatedAt     time.Time `json:"created_at"`
}

// Redacted strips the answer key for serving to a candidate mid-attempt.
func (q Question) Redacted() Question {
	q.CorrectAnswer = ""
	return q
}

// Attempt is one sitting of an exam by one user. It is non-terminal while
// SubmittedAt is nil; exactly one non-terminal attempt may exist per
// (user, exam) pair. Once SubmittedAt is set the scoring fields never change.
type Attempt struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	ExamID         string     `json:"exam_id"`
	TotalQuestions int        `json:"total_questions"`
	StartedAt      time.Time  `json:"started_at"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	TimeSpentSec   *int       `json:"time_spent,omitempty"`
	Score          *int       `json:"score,omitempty"` // 0..100
	CorrectCount   int        `json:"correct_count"`
	WrongCount     int        `json:"wrong_count"`
}

func (a Attempt) Terminal() bool { return a.SubmittedAt != nil }

// Unanswered questions contribute to neither count, so the tally is only
// recoverable by subtraction.
func (a Attempt) Unanswered() int {
	return a.TotalQuestions - a.CorrectCount - a.WrongCount
}

// Answer is one graded response, written during finalization and immutable
// afterwards. An attempt owns its answers.
type Answer struct {
	ID             string `json:"id"`
	AttemptID      string `json:"attempt_id"`
	QuestionID     string `json:"question_id"`
	UserID         string `json:"user_id"`
	SelectedOption Option `json:"selected_option"`
	IsCorrect      bool   `json:"is_correct"`
}

// ExamSummary is the list-view projection: exam metadata plus the viewer's
// access status, never the questions.
type ExamSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Subject       string    `json:"subject"`
	DurationMin   int       `json:"duration"`
	PlanID        string    `json:"plan_id,omitempty"`
	QuestionCount int       `json:"question_count"`
	HasAccess     bool      `json:"has_access"`
	CreatedAt     time.Time `json:"created_at"`
}

// ExamView is the attempt-facing read: metadata and redacted questions.
type ExamView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Subject     string     `json:"subject"`
	DurationMin int        `json:"duration"`
	Questions   []Question `json:"questions"`
}

// StartReceipt is what the client needs to run the countdown: the attempt id
// and the original StartedAt, unchanged on resume.
type StartReceipt struct {
	AttemptID string    `json:"attempt_id"`
	StartedAt time.Time `json:"started_at"`
	Resumed   bool      `json:"resumed"`
}

// Result is the finalization summary returned by Submit.
type Result struct {
	AttemptID      string `json:"attempt_id"`
	Score          int    `json:"score"`
	CorrectCount   int    `json:"correct_count"`
	WrongCount     int    `json:"wrong_count"`
	TotalQuestions int    `json:"total_questions"`
}
