package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/haseebafeef/mock-verse/internal/exam"
)

// PlanHoldings lists the plans a user owns via completed orders. Satisfied by
// the billing store.
type PlanHoldings interface {
	CompletedPlanIDs(ctx context.Context, userID string) ([]string, error)
}

// GET /exams?purchased=true&limit=50&offset=0
// Lists active exams with the viewer's access status. ?purchased narrows to
// exams unlocked by the viewer's completed orders.
func ListExamsHandler(store exam.Store, holdings PlanHoldings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		owned, err := holdings.CompletedPlanIDs(r.Context(), p.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		ownedSet := make(map[string]bool, len(owned))
		for _, id := range owned {
			ownedSet[id] = true
		}

		opts := exam.ListOpts{
			ActiveOnly: true,
			Limit:      parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:     parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		if r.URL.Query().Get("purchased") == "true" {
			if len(owned) == 0 {
				writeJSON(w, http.StatusOK, []exam.ExamSummary{})
				return
			}
			opts.PlanIDs = owned
		}

		list, err := store.ListExams(r.Context(), opts)
		if err != nil {
			writeErr(w, err)
			return
		}
		for i := range list {
			list[i].HasAccess = list[i].PlanID == "" || ownedSet[list[i].PlanID]
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /exams/{examID}
// Entitlement-gated exam detail with redacted questions: the answer key is
// never served on this path.
func GetExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		view, err := svc.ExamForAttempt(r.Context(), p, chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
