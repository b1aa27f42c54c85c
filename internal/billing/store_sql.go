package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutPlan(ctx context.Context, p Plan) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plans (id,name,description,price,is_active,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET
		   name=EXCLUDED.name, description=EXCLUDED.description,
		   price=EXCLUDED.price, is_active=EXCLUDED.is_active`,
		p.ID, p.Name, p.Description, p.Price, p.IsActive, p.CreatedAt.Unix())
	return err
}

func (s *SQLStore) GetPlan(ctx context.Context, id string) (Plan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,name,description,price,is_active,created_at FROM plans WHERE id=$1`, id)
	var p Plan
	var created int64
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.IsActive, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Plan{}, err
	}
	p.CreatedAt = time.Unix(created, 0).UTC()
	return p, nil
}

func (s *SQLStore) ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error) {
	q := `SELECT id,name,description,price,is_active,created_at FROM plans`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY price`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Plan{}
	for rows.Next() {
		var p Plan
		var created int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.IsActive, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateOrder(ctx context.Context, o Order) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (id,user_id,plan_id,amount,status,payment_ref,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.UserID, o.PlanID, o.Amount, string(o.Status), o.PaymentRef, o.CreatedAt.Unix())
	return err
}

func (s *SQLStore) GetOrder(ctx context.Context, id string) (Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,user_id,plan_id,amount,status,payment_ref,created_at FROM orders WHERE id=$1`, id)
	var o Order
	var status string
	var created int64
	err := row.Scan(&o.ID, &o.UserID, &o.PlanID, &o.Amount, &status, &o.PaymentRef, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = OrderStatus(status)
	o.CreatedAt = time.Unix(created, 0).UTC()
	return o, nil
}

// SetPaymentRef attaches the external session reference to a pending order.
func (s *SQLStore) SetPaymentRef(ctx context.Context, orderID, ref string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders SET payment_ref=$1 WHERE id=$2`, ref, orderID)
	return err
}

// CompleteOrder transitions pending -> completed. The conditional update
// makes repeated confirmations harmless: once completed the row never moves.
func (s *SQLStore) CompleteOrder(ctx context.Context, orderID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status=$1 WHERE id=$2 AND status=$3`,
		string(OrderCompleted), orderID, string(OrderPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %s not pending: %w", orderID, ErrConflict)
	}
	return nil
}

// HasCompletedPurchase implements exam.PurchaseReader.
func (s *SQLStore) HasCompletedPurchase(ctx context.Context, userID, planID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM orders WHERE user_id=$1 AND plan_id=$2 AND status=$3 LIMIT 1`,
		userID, planID, string(OrderCompleted)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CompletedPlanIDs returns the plans the user holds via completed orders.
func (s *SQLStore) CompletedPlanIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT plan_id FROM orders WHERE user_id=$1 AND status=$2`,
		userID, string(OrderCompleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
