package exam

import (
	"context"
	"fmt"
)

// PurchaseReader answers whether a user holds a completed purchase of a plan.
// The billing store satisfies it.
type PurchaseReader interface {
	HasCompletedPurchase(ctx context.Context, userID, planID string) (bool, error)
}

// Entitlements decides exam access. Pure read, re-evaluated on every call:
// entitlement can flip between page loads when a checkout completes
// asynchronously, so nothing here is cached.
type Entitlements struct {
	purchases PurchaseReader
}

func NewEntitlements(purchases PurchaseReader) *Entitlements {
	return &Entitlements{purchases: purchases}
}

// CheckAccess returns nil when the principal may take the exam, or
// ErrForbidden. Free exams (no plan) are open to everyone. Role is
// deliberately ignored: admins manage exams but buy plans like anyone else.
func (e *Entitlements) CheckAccess(ctx context.Context, p Principal, ex Exam) error {
	if ex.PlanID == "" {
		return nil
	}
	ok, err := e.purchases.HasCompletedPurchase(ctx, p.ID, ex.PlanID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("plan required: %w", ErrForbidden)
	}
	return nil
}
