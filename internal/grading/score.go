// Package grading holds the pure scoring functions: percentage score and the
// per-subject review breakdown. No storage, no side effects.
package grading

import "math"

// Percent maps (total questions, correct count) to an integer score in
// [0,100] using round-half-up. A zero-question total scores 0.
func Percent(total, correct int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// Graded is the minimal view of a graded answer the breakdown needs.
type Graded struct {
	QuestionID string
	IsCorrect  bool
}

type SubjectTotals struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// BreakdownBySubject aggregates graded answers per subject label. With the
// current data model an exam has exactly one subject, so subjectOf is
// constant and the map has a single entry.
func BreakdownBySubject(answers []Graded, subjectOf func(questionID string) string) map[string]SubjectTotals {
	out := map[string]SubjectTotals{}
	for _, a := range answers {
		s := subjectOf(a.QuestionID)
		t := out[s]
		t.Total++
		if a.IsCorrect {
			t.Correct++
		}
		out[s] = t
	}
	return out
}
