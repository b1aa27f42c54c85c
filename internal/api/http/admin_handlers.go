package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/haseebafeef/mock-verse/internal/audit"
	"github.com/haseebafeef/mock-verse/internal/billing"
	"github.com/haseebafeef/mock-verse/internal/exam"
)

// POST /admin/exams
func CreateExamHandler(store exam.Store, plans *billing.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Subject     string `json:"subject"`
			Duration    int    `json:"duration"`
			PlanID      string `json:"plan_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.Subject == "" || req.Duration <= 0 {
			http.Error(w, "name, subject and positive duration required", http.StatusBadRequest)
			return
		}
		if req.PlanID != "" {
			if _, err := plans.GetPlan(r.Context(), req.PlanID); err != nil {
				writeErr(w, err)
				return
			}
		}

		e := exam.Exam{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			Subject:     req.Subject,
			DurationMin: req.Duration,
			PlanID:      req.PlanID,
			IsActive:    true,
			CreatedAt:   time.Now().UTC(),
		}
		if err := store.PutExam(r.Context(), e); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

// POST /admin/questions
func CreateQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExamID        string `json:"exam_id"`
			Question      string `json:"question"`
			OptionA       string `json:"option_a"`
			OptionB       string `json:"option_b"`
			OptionC       string `json:"option_c"`
			OptionD       string `json:"option_d"`
			CorrectAnswer string `json:"correct_answer"`
			Points        int    `json:"points"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.ExamID == "" || req.Question == "" ||
			req.OptionA == "" || req.OptionB == "" || req.OptionC == "" || req.OptionD == "" {
			http.Error(w, "missing required fields", http.StatusBadRequest)
			return
		}
		if !exam.Option(req.CorrectAnswer).Valid() {
			http.Error(w, "correct_answer must be A, B, C, or D", http.StatusBadRequest)
			return
		}
		if _, err := store.GetExam(r.Context(), req.ExamID); err != nil {
			writeErr(w, err)
			return
		}
		if req.Points <= 0 {
			req.Points = 1
		}

		q := exam.Question{
			ID:            uuid.NewString(),
			ExamID:        req.ExamID,
			Question:      req.Question,
			OptionA:       req.OptionA,
			OptionB:       req.OptionB,
			OptionC:       req.OptionC,
			OptionD:       req.OptionD,
			CorrectAnswer: exam.Option(req.CorrectAnswer),
			Points:        req.Points,
			CreatedAt:     time.Now().UTC(),
		}
		if err := store.PutQuestion(r.Context(), q); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// POST /admin/plans
func CreatePlanHandler(store *billing.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name        string  `json:"name"`
			Description string  `json:"description"`
			Price       float64 `json:"price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.Price < 0 {
			http.Error(w, "name and non-negative price required", http.StatusBadRequest)
			return
		}
		p := billing.Plan{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			IsActive:    true,
			CreatedAt:   time.Now().UTC(),
		}
		if err := store.PutPlan(r.Context(), p); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

// GET /admin/events?limit=100 — tail of the audit log.
func EventsHandler(log *audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		events, err := log.Tail(r.Context(), limit)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}
