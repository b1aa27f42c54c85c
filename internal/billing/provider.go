package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CheckoutSession is the external payment session an order is settled
// through. The session id doubles as the order's opaque payment reference.
type CheckoutSession struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url"`
}

// Provider is the payment collaborator. Capture itself is out of scope; the
// platform only needs a session to hand to the client and a paid/unpaid
// answer on confirmation.
type Provider interface {
	CreateSession(ctx context.Context, o Order, p Plan) (CheckoutSession, error)
	VerifySession(ctx context.Context, sessionID string) (paid bool, err error)
}

// DevProvider settles every session immediately. Used in dev mode and tests.
type DevProvider struct{}

func (DevProvider) CreateSession(_ context.Context, o Order, _ Plan) (CheckoutSession, error) {
	id := "dev-" + uuid.NewString()
	return CheckoutSession{
		ID:          id,
		RedirectURL: fmt.Sprintf("/checkout/confirm?order_id=%s&session_id=%s", o.ID, id),
	}, nil
}

func (DevProvider) VerifySession(context.Context, string) (bool, error) { return true, nil }
