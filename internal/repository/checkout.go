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

const checkoutColumns = `id, user_id, event_id, stripe_session_id, cart, breakdown, status, order_id, created_at, paid_at`

func scanCheckout(row pgx.Row) (*model.StripeEventCheckout, error) {
	var (
		c               model.StripeEventCheckout
		cart, breakdown []byte
	)
	err := row.Scan(&c.ID, &c.UserID, &c.EventID, &c.StripeSessionID, &cart, &breakdown,
		&c.Status, &c.OrderID, &c.CreatedAt, &c.PaidAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cart, &c.Cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if err := json.Unmarshal(breakdown, &c.Breakdown); err != nil {
		return nil, fmt.Errorf("decode breakdown: %w", err)
	}
	return &c, nil
}

// CreateCheckout persists a pending checkout snapshot.
func (q *Queries) CreateCheckout(ctx context.Context, c *model.StripeEventCheckout) (*model.StripeEventCheckout, error) {
	cart, err := json.Marshal(c.Cart)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	breakdown, err := json.Marshal(c.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("encode breakdown: %w", err)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()

	_, err = q.db.Exec(ctx,
		`INSERT INTO stripe_event_checkouts (id, user_id, event_id, stripe_session_id, cart, breakdown, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.UserID, c.EventID, c.StripeSessionID, cart, breakdown, string(c.Status), c.CreatedAt,
	)
	if err != nil {
		return nil, wrap("insert checkout", err)
	}
	return c, nil
}

// GetCheckout returns a checkout by id or ErrNotFound.
func (q *Queries) GetCheckout(ctx context.Context, id string) (*model.StripeEventCheckout, error) {
	c, err := scanCheckout(q.db.QueryRow(ctx,
		`SELECT `+checkoutColumns+` FROM stripe_event_checkouts WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get checkout", err)
	}
	return c, nil
}

// GetCheckoutBySession returns a checkout by Stripe session id or ErrNotFound.
func (q *Queries) GetCheckoutBySession(ctx context.Context, sessionID string) (*model.StripeEventCheckout, error) {
	c, err := scanCheckout(q.db.QueryRow(ctx,
		`SELECT `+checkoutColumns+` FROM stripe_event_checkouts WHERE stripe_session_id = $1`, sessionID))
	if err != nil {
		return nil, wrap("get checkout by session", err)
	}
	return c, nil
}

// LockCheckoutBySession reads a checkout with SELECT … FOR UPDATE. Concurrent
// finalizations of the same session serialise on this row.
func (q *Queries) LockCheckoutBySession(ctx context.Context, sessionID string) (*model.StripeEventCheckout, error) {
	c, err := scanCheckout(q.db.QueryRow(ctx,
		`SELECT `+checkoutColumns+` FROM stripe_event_checkouts WHERE stripe_session_id = $1 FOR UPDATE`,
		sessionID,
	))
	if err != nil {
		return nil, wrap("lock checkout", err)
	}
	return c, nil
}

// MarkCheckoutPaid records the order a checkout produced.
func (q *Queries) MarkCheckoutPaid(ctx context.Context, id, orderID string, paidAt time.Time) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE stripe_event_checkouts SET status = 'paid', order_id = $2, paid_at = $3 WHERE id = $1`,
		id, orderID, paidAt,
	)
	if err != nil {
		return wrap("mark checkout paid", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCheckoutStatus moves a pending checkout to status. It reports false
// when the checkout was no longer pending.
func (q *Queries) MarkCheckoutStatus(ctx context.Context, id string, status model.CheckoutStatus) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE stripe_event_checkouts SET status = $2 WHERE id = $1 AND status = 'pending'`,
		id, string(status),
	)
	if err != nil {
		return false, wrap("mark checkout status", err)
	}
	return tag.RowsAffected() > 0, nil
}
