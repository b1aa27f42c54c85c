package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/haseebafeef/mock-verse/internal/exam"
)

// POST /exams/{examID}/start
func StartAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		receipt, err := svc.Start(r.Context(), p, chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		status := http.StatusCreated
		if receipt.Resumed {
			status = http.StatusOK
		}
		writeJSON(w, status, receipt)
	}
}

type submitReq struct {
	AttemptID string                 `json:"attempt_id"`
	Answers   map[string]exam.Option `json:"answers"`
	TimeSpent int                    `json:"time_spent"`
}

// POST /exams/{examID}/submit
// A Conflict here means "already submitted": the client routes to the
// existing result instead of erroring.
func SubmitAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req submitReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.AttemptID == "" || req.Answers == nil {
			http.Error(w, "attempt_id and answers required", http.StatusBadRequest)
			return
		}
		res, err := svc.Submit(r.Context(), p, chi.URLParam(r, "examID"), req.AttemptID, req.Answers, req.TimeSpent)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /attempts?limit=50&offset=0 — the caller's attempt history.
func ListAttemptsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
		list, err := svc.Attempts(r.Context(), p, limit, offset)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /attempts/{attemptID}/result — review of a terminal attempt.
func AttemptResultHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		review, err := svc.Result(r.Context(), p, chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, review)
	}
}
