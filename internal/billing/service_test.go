package billing

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/haseebafeef/mock-verse/internal/db"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "billing_test.db") + "?_pragma=busy_timeout(5000)"
	sqlDB, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return NewSQLStore(sqlDB)
}

func seedPlan(t *testing.T, store *SQLStore, id string, price float64, active bool) {
	t.Helper()
	if err := store.PutPlan(context.Background(), Plan{
		ID: id, Name: id, Price: price, IsActive: active, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
}

// stubProvider lets a test control the paid answer per session.
type stubProvider struct {
	paid     map[string]bool
	sessions int
}

func (p *stubProvider) CreateSession(_ context.Context, o Order, _ Plan) (CheckoutSession, error) {
	p.sessions++
	id := fmt.Sprintf("sess-%d", p.sessions)
	return CheckoutSession{ID: id, RedirectURL: "/confirm?order_id=" + o.ID}, nil
}

func (p *stubProvider) VerifySession(_ context.Context, sessionID string) (bool, error) {
	return p.paid[sessionID], nil
}

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	store := openTestStore(t)
	seedPlan(t, store, "plan-basic", 9.99, true)
	svc := NewService(store, DevProvider{}, nil)
	ctx := context.Background()

	intent, err := svc.Checkout(ctx, "u1", "plan-basic")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if intent.SessionID == "" || intent.Amount != 9.99 {
		t.Errorf("intent = %+v", intent)
	}

	o, err := store.GetOrder(ctx, intent.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != OrderPending || o.PaymentRef != intent.SessionID || o.PlanID != "plan-basic" {
		t.Errorf("order = %+v", o)
	}

	// A pending order grants nothing.
	ok, err := store.HasCompletedPurchase(ctx, "u1", "plan-basic")
	if err != nil || ok {
		t.Errorf("pending grants entitlement: ok=%v err=%v", ok, err)
	}
}

func TestCheckoutUnknownOrInactivePlan(t *testing.T) {
	store := openTestStore(t)
	seedPlan(t, store, "plan-off", 5, false)
	svc := NewService(store, DevProvider{}, nil)

	if _, err := svc.Checkout(context.Background(), "u1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown plan: want ErrNotFound, got %v", err)
	}
	if _, err := svc.Checkout(context.Background(), "u1", "plan-off"); !errors.Is(err, ErrNotFound) {
		t.Errorf("inactive plan: want ErrNotFound, got %v", err)
	}
}

func TestConfirmCompletesAndGrantsEntitlement(t *testing.T) {
	store := openTestStore(t)
	seedPlan(t, store, "plan-basic", 9.99, true)
	svc := NewService(store, DevProvider{}, nil)
	ctx := context.Background()

	intent, err := svc.Checkout(ctx, "u1", "plan-basic")
	if err != nil {
		t.Fatal(err)
	}
	o, err := svc.Confirm(ctx, "u1", intent.OrderID, intent.SessionID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if o.Status != OrderCompleted {
		t.Errorf("status = %s", o.Status)
	}

	ok, err := store.HasCompletedPurchase(ctx, "u1", "plan-basic")
	if err != nil || !ok {
		t.Errorf("entitlement after completion: ok=%v err=%v", ok, err)
	}
	ids, err := store.CompletedPlanIDs(ctx, "u1")
	if err != nil || len(ids) != 1 || ids[0] != "plan-basic" {
		t.Errorf("completed plans = %v, err = %v", ids, err)
	}

	// Duplicate confirmation is a no-op, not an error.
	again, err := svc.Confirm(ctx, "u1", intent.OrderID, intent.SessionID)
	if err != nil || again.Status != OrderCompleted {
		t.Errorf("repeat confirm: %+v, err = %v", again, err)
	}
}

func TestConfirmGuards(t *testing.T) {
	store := openTestStore(t)
	seedPlan(t, store, "plan-basic", 9.99, true)
	provider := &stubProvider{paid: map[string]bool{}}
	svc := NewService(store, provider, nil)
	ctx := context.Background()

	intent, err := svc.Checkout(ctx, "u1", "plan-basic")
	if err != nil {
		t.Fatal(err)
	}

	// Someone else's order looks like it does not exist.
	if _, err := svc.Confirm(ctx, "mallory", intent.OrderID, intent.SessionID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign order: want ErrNotFound, got %v", err)
	}

	// A session id that does not match the order's payment ref is rejected.
	if _, err := svc.Confirm(ctx, "u1", intent.OrderID, "forged"); !errors.Is(err, ErrUnpaid) {
		t.Errorf("session mismatch: want ErrUnpaid, got %v", err)
	}

	// Matching session, but the provider says it was never paid.
	if _, err := svc.Confirm(ctx, "u1", intent.OrderID, intent.SessionID); !errors.Is(err, ErrUnpaid) {
		t.Errorf("unpaid session: want ErrUnpaid, got %v", err)
	}
	o, _ := store.GetOrder(ctx, intent.OrderID)
	if o.Status != OrderPending {
		t.Errorf("order moved without payment: %s", o.Status)
	}

	// Payment lands, confirmation goes through.
	provider.paid[intent.SessionID] = true
	if _, err := svc.Confirm(ctx, "u1", intent.OrderID, intent.SessionID); err != nil {
		t.Fatalf("paid confirm: %v", err)
	}
}

func TestCompleteOrderOnlyMovesPending(t *testing.T) {
	store := openTestStore(t)
	seedPlan(t, store, "plan-basic", 9.99, true)
	ctx := context.Background()

	o := Order{ID: "o1", UserID: "u1", PlanID: "plan-basic", Amount: 9.99,
		Status: OrderPending, CreatedAt: time.Now()}
	if err := store.CreateOrder(ctx, o); err != nil {
		t.Fatal(err)
	}
	if err := store.CompleteOrder(ctx, "o1"); err != nil {
		t.Fatal(err)
	}
	if err := store.CompleteOrder(ctx, "o1"); !errors.Is(err, ErrConflict) {
		t.Errorf("second completion: want ErrConflict, got %v", err)
	}
}

func TestListPlansActiveOnly(t *testing.T) {
	store := openTestStore(t)
	seedPlan(t, store, "plan-premium", 29.99, true)
	seedPlan(t, store, "plan-basic", 9.99, true)
	seedPlan(t, store, "plan-retired", 1, false)
	svc := NewService(store, DevProvider{}, nil)

	plans, err := svc.Plans(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 2 {
		t.Fatalf("plans = %d, want 2", len(plans))
	}
	// Cheapest first.
	if plans[0].ID != "plan-basic" || plans[1].ID != "plan-premium" {
		t.Errorf("order = %s, %s", plans[0].ID, plans[1].ID)
	}
}
