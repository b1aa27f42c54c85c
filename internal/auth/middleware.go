package auth

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/haseebafeef/mock-verse/internal/exam"
	"github.com/haseebafeef/mock-verse/internal/rbac"
)

// JWTMiddleware validates the bearer token and places both the typed
// Principal and the rbac role into the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			ctx := WithPrincipal(r.Context(), exam.Principal{ID: claims.Sub, Role: exam.Role(claims.Role)})
			ctx = rbac.WithRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AttachRoleFromDB replaces the claim role with the authoritative one from
// the users table, so a stale token cannot keep a demoted role alive.
// allowClaimFallback=true in dev; false in prod.
func AttachRoleFromDB(db *sql.DB, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p, ok := PrincipalFromContext(ctx)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			var role string
			err := db.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, p.ID).Scan(&role)
			switch {
			case err == nil && role != "":
				p.Role = exam.Role(role)
				ctx = WithPrincipal(ctx, p)
				ctx = rbac.WithRole(ctx, role)
				next.ServeHTTP(w, r.WithContext(ctx))

			case errors.Is(err, sql.ErrNoRows):
				if allowClaimFallback && p.Role != "" {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)

			default:
				if allowClaimFallback && p.Role != "" {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}
