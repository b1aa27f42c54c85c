package grading

import "testing"

func TestPercentFixedPoints(t *testing.T) {
	cases := []struct {
		total, correct, want int
	}{
		{0, 0, 0},
		{1, 1, 100},
		{1, 0, 0},
		{3, 2, 67}, // round-half-up of 66.67
		{4, 2, 50},
		{3, 1, 33},
		{8, 4, 50},
		{200, 1, 1}, // 0.5 rounds up
	}
	for _, c := range cases {
		if got := Percent(c.total, c.correct); got != c.want {
			t.Errorf("Percent(%d,%d) = %d, want %d", c.total, c.correct, got, c.want)
		}
	}
}

func TestPercentBoundsAndMonotonic(t *testing.T) {
	for total := 0; total <= 25; total++ {
		prev := -1
		for correct := 0; correct <= total; correct++ {
			got := Percent(total, correct)
			if got < 0 || got > 100 {
				t.Fatalf("Percent(%d,%d) = %d out of [0,100]", total, correct, got)
			}
			if got < prev {
				t.Fatalf("Percent(%d,%d) = %d < Percent(%d,%d) = %d", total, correct, got, total, correct-1, prev)
			}
			prev = got
		}
	}
}

func TestBreakdownBySubject(t *testing.T) {
	answers := []Graded{
		{QuestionID: "q1", IsCorrect: true},
		{QuestionID: "q2", IsCorrect: false},
		{QuestionID: "q3", IsCorrect: true},
	}
	got := BreakdownBySubject(answers, func(string) string { return "Mathematics" })
	if len(got) != 1 {
		t.Fatalf("expected single-subject breakdown, got %d entries", len(got))
	}
	if got["Mathematics"] != (SubjectTotals{Correct: 2, Total: 3}) {
		t.Errorf("Mathematics = %+v, want {2 3}", got["Mathematics"])
	}
}

func TestBreakdownEmpty(t *testing.T) {
	got := BreakdownBySubject(nil, func(string) string { return "x" })
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}
