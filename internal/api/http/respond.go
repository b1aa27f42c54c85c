package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/haseebafeef/mock-verse/internal/auth"
	"github.com/haseebafeef/mock-verse/internal/billing"
	"github.com/haseebafeef/mock-verse/internal/exam"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the domain error taxonomy onto HTTP statuses. Anything not in
// the taxonomy is a 500 with a generic body.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exam.ErrNotFound), errors.Is(err, billing.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, exam.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, exam.ErrConflict), errors.Is(err, billing.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, exam.ErrInvalidState):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, billing.ErrUnpaid):
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// principalFrom pulls the Principal the JWT middleware validated. Handlers
// behind the middleware can rely on it being present.
func principalFrom(r *http.Request) (exam.Principal, bool) {
	return auth.PrincipalFromContext(r.Context())
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
