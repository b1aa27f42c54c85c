package http

import (
	"encoding/json"
	"net/http"

	"github.com/haseebafeef/mock-verse/internal/billing"
)

// GET /plans — active plans for the pricing page. Public.
func ListPlansHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := svc.Plans(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plans)
	}
}

// POST /checkout  { "plan_id": "..." }
// Creates a pending order and an external payment session. The order grants
// nothing until /checkout/confirm verifies payment.
func CheckoutHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			PlanID string `json:"plan_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
			http.Error(w, "plan_id required", http.StatusBadRequest)
			return
		}
		intent, err := svc.Checkout(r.Context(), p.ID, req.PlanID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, intent)
	}
}

// GET /checkout/confirm?order_id=...&session_id=...
func CheckoutConfirmHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		orderID := r.URL.Query().Get("order_id")
		sessionID := r.URL.Query().Get("session_id")
		if orderID == "" || sessionID == "" {
			http.Error(w, "order_id and session_id required", http.StatusBadRequest)
			return
		}
		order, err := svc.Confirm(r.Context(), p.ID, orderID, sessionID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}
