package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

// orderColumns selects an order plus the ids of the rows linked to it.
const orderColumns = `o.id, o.user_id, o.event_id, o.checkout_id, o.stripe_session_id, o.payment_intent_id,
	o.amount_cents, o.charged_cents, o.breakdown, o.status, o.created_at,
	COALESCE((SELECT array_agg(a.id::text ORDER BY a.created_at) FROM event_attendance a WHERE a.order_id = o.id), '{}'),
	COALESCE((SELECT array_agg(r.id::text ORDER BY r.created_at) FROM hotel_reservations r WHERE r.order_id = o.id), '{}')`

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		o         model.Order
		breakdown []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &o.EventID, &o.CheckoutID, &o.StripeSessionID, &o.PaymentIntentID,
		&o.AmountCents, &o.ChargedCents, &breakdown, &o.Status, &o.CreatedAt,
		&o.AttendanceIDs, &o.ReservationIDs)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(breakdown, &o.Breakdown); err != nil {
		return o, fmt.Errorf("decode breakdown: %w", err)
	}
	return o, nil
}

// CreateOrder inserts an order. A second order for the same checkout yields
// ErrConflict.
func (q *Queries) CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error) {
	breakdown, err := json.Marshal(o.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("encode breakdown: %w", err)
	}
	o.ID = uuid.New().String()
	o.CreatedAt = time.Now().UTC()

	_, err = q.db.Exec(ctx,
		`INSERT INTO orders (id, user_id, event_id, checkout_id, stripe_session_id, payment_intent_id,
		                     amount_cents, charged_cents, breakdown, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.UserID, o.EventID, o.CheckoutID, o.StripeSessionID, o.PaymentIntentID,
		o.AmountCents, o.ChargedCents, breakdown, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return nil, wrap("insert order", err)
	}
	return o, nil
}

// GetOrder returns an order by id or ErrNotFound.
func (q *Queries) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id))
	if err != nil {
		return nil, wrap("get order", err)
	}
	return &o, nil
}

// GetOrderByCheckout returns the order created for a checkout or ErrNotFound.
func (q *Queries) GetOrderByCheckout(ctx context.Context, checkoutID string) (*model.Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.checkout_id = $1`, checkoutID))
	if err != nil {
		return nil, wrap("get order by checkout", err)
	}
	return &o, nil
}

// ListOrders returns orders newest first. An empty userID lists every order.
func (q *Queries) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders o
		 WHERE ($1::uuid IS NULL OR o.user_id = $1::uuid)
		 ORDER BY o.created_at DESC`,
		nullable(userID),
	)
	if err != nil {
		return nil, wrap("list orders", err)
	}
	out, err := collect(rows, scanOrder)
	return out, wrap("scan order", err)
}
