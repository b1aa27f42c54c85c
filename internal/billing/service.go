package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Recorder matches the audit log. May be nil.
type Recorder interface {
	Record(ctx context.Context, typ, key string, data any)
}

// Service runs the checkout flow: create a pending order against an active
// plan, hand out a payment session, and complete the order once the session
// is verified paid. Entitlement flips only at completion.
type Service struct {
	store    *SQLStore
	provider Provider
	events   Recorder
	now      func() time.Time
}

func NewService(store *SQLStore, provider Provider, events Recorder) *Service {
	return &Service{store: store, provider: provider, events: events, now: time.Now}
}

type CheckoutIntent struct {
	OrderID     string  `json:"order_id"`
	SessionID   string  `json:"session_id"`
	RedirectURL string  `json:"redirect_url"`
	Amount      float64 `json:"amount"`
}

func (s *Service) Checkout(ctx context.Context, userID, planID string) (CheckoutIntent, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return CheckoutIntent{}, err
	}
	if !plan.IsActive {
		return CheckoutIntent{}, fmt.Errorf("plan %s inactive: %w", planID, ErrNotFound)
	}

	o := Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		PlanID:    plan.ID,
		Amount:    plan.Price,
		Status:    OrderPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateOrder(ctx, o); err != nil {
		return CheckoutIntent{}, err
	}

	sess, err := s.provider.CreateSession(ctx, o, plan)
	if err != nil {
		return CheckoutIntent{}, err
	}
	if err := s.store.SetPaymentRef(ctx, o.ID, sess.ID); err != nil {
		return CheckoutIntent{}, err
	}

	return CheckoutIntent{
		OrderID:     o.ID,
		SessionID:   sess.ID,
		RedirectURL: sess.RedirectURL,
		Amount:      o.Amount,
	}, nil
}

// Confirm verifies the payment session and completes the order. Confirming an
// already-completed order returns it unchanged, so duplicate callbacks from
// the payment flow are harmless.
func (s *Service) Confirm(ctx context.Context, userID, orderID, sessionID string) (Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != userID {
		return Order{}, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if o.Status == OrderCompleted {
		return o, nil
	}
	if o.PaymentRef == "" || o.PaymentRef != sessionID {
		return Order{}, fmt.Errorf("order %s: session mismatch: %w", orderID, ErrUnpaid)
	}

	paid, err := s.provider.VerifySession(ctx, sessionID)
	if err != nil {
		return Order{}, err
	}
	if !paid {
		return Order{}, fmt.Errorf("order %s: %w", orderID, ErrUnpaid)
	}

	if err := s.store.CompleteOrder(ctx, orderID); err != nil {
		return Order{}, err
	}
	o.Status = OrderCompleted
	if s.events != nil {
		s.events.Record(ctx, "order.completed", o.ID, map[string]string{
			"user_id": o.UserID, "plan_id": o.PlanID,
		})
	}
	return o, nil
}

func (s *Service) Plans(ctx context.Context) ([]Plan, error) {
	return s.store.ListPlans(ctx, true)
}
