package model

import "time"

// Outbox event types.
const (
	EventOrderCreated    = "order.created"
	EventCheckoutExpired = "checkout.expired"
)

// OutboxRecord is an integration event waiting to be published.
type OutboxRecord struct {
	ID           string
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	LastError    string
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

// OrderCreatedPayload is the body of an order.created event.
type OrderCreatedPayload struct {
	OrderID        string    `json:"order_id"`
	UserID         string    `json:"user_id"`
	EventID        string    `json:"event_id"`
	AmountCents    int64     `json:"amount_cents"`
	PlayerCount    int       `json:"player_count"`
	ReservationIDs []string  `json:"reservation_ids"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// CheckoutExpiredPayload is the body of a checkout.expired event.
type CheckoutExpiredPayload struct {
	CheckoutID string    `json:"checkout_id"`
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
