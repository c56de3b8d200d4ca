// Package payments wraps Stripe Checkout: creating and reading sessions and
// verifying webhook deliveries.
package payments

import "errors"

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Webhook event types the checkout flow reacts to.
const (
	EventSessionCompleted      = "checkout.session.completed"
	EventSessionAsyncSucceeded = "checkout.session.async_payment_succeeded"
	EventSessionAsyncFailed    = "checkout.session.async_payment_failed"
	EventSessionExpired        = "checkout.session.expired"
)

// Session statuses reported by Stripe.
const (
	StatusOpen     = "open"
	StatusComplete = "complete"
	StatusExpired  = "expired"

	PaymentPaid              = "paid"
	PaymentUnpaid            = "unpaid"
	PaymentNoPaymentRequired = "no_payment_required"
)

// LineItem is one priced row on the Stripe-hosted checkout page.
type LineItem struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	UnitAmountCents int64  `json:"unit_amount_cents"`
	Quantity        int64  `json:"quantity"`
}

// SessionParams describes a checkout session to create.
type SessionParams struct {
	CheckoutID    string
	CustomerEmail string
	LineItems     []LineItem
	Metadata      map[string]string
}

// Session is the subset of a Stripe checkout session the service reads.
type Session struct {
	ID                string
	URL               string
	Status            string
	PaymentStatus     string
	PaymentIntentID   string
	ClientReferenceID string
	AmountTotal       int64
	Metadata          map[string]string
}

// Paid reports whether Stripe has collected the money for the session.
func (s *Session) Paid() bool {
	return s.PaymentStatus == PaymentPaid || s.PaymentStatus == PaymentNoPaymentRequired
}

// WebhookEvent is a verified webhook delivery. Session is set for
// checkout.session.* events.
type WebhookEvent struct {
	ID      string
	Type    string
	Session *Session
}
