package billing

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrUnpaid   = errors.New("payment not completed")
)

// Plan is the entitlement unit: a completed order of a plan grants access to
// every exam referencing it.
type Plan struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
)

// Order is one purchase of a plan. Only completed orders grant entitlement;
// PaymentRef is the opaque reference of the external payment session.
type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	PlanID     string      `json:"plan_id"`
	Amount     float64     `json:"amount"`
	Status     OrderStatus `json:"status"`
	PaymentRef string      `json:"payment_ref,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
