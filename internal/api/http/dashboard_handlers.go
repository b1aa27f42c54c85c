package http

import (
	"net/http"

	"github.com/haseebafeef/mock-verse/internal/exam"
)

type dashboard struct {
	AttemptsTaken int            `json:"attempts_taken"`
	AverageScore  int            `json:"average_score"`
	PlanIDs       []string       `json:"plan_ids"`
	Recent        []exam.Attempt `json:"recent"`
}

// GET /dashboard — attempt history stats plus purchased plans. The average
// is the running mean of finalized scores, zero when nothing is graded yet.
func DashboardHandler(svc *exam.Service, holdings PlanHoldings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		attempts, err := svc.Attempts(r.Context(), p, 0, 0)
		if err != nil {
			writeErr(w, err)
			return
		}
		planIDs, err := holdings.CompletedPlanIDs(r.Context(), p.ID)
		if err != nil {
			writeErr(w, err)
			return
		}

		var sum, graded int
		for _, a := range attempts {
			if a.Score != nil {
				sum += *a.Score
				graded++
			}
		}
		avg := 0
		if graded > 0 {
			avg = sum / graded
		}

		recent := attempts
		if len(recent) > 10 {
			recent = recent[:10]
		}
		writeJSON(w, http.StatusOK, dashboard{
			AttemptsTaken: len(attempts),
			AverageScore:  avg,
			PlanIDs:       planIDs,
			Recent:        recent,
		})
	}
}
