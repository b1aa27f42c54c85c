package auth

import (
	"context"

	"github.com/haseebafeef/mock-verse/internal/exam"
)

type ctxKey struct{}

var ctxKeyPrincipal = ctxKey{}

// WithPrincipal stores the validated caller identity. Set once by the JWT
// middleware; everything downstream consumes the typed value instead of
// re-parsing token claims.
func WithPrincipal(ctx context.Context, p exam.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) (exam.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(exam.Principal)
	return p, ok && p.ID != ""
}
