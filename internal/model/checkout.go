package model

import "time"

// CheckoutStatus is the lifecycle state of a StripeEventCheckout.
type CheckoutStatus string

const (
	CheckoutPending   CheckoutStatus = "pending"
	CheckoutPaid      CheckoutStatus = "paid"
	CheckoutExpired   CheckoutStatus = "expired"
	CheckoutCancelled CheckoutStatus = "cancelled"
)

// CartRoom is one room entry in a checkout cart.
type CartRoom struct {
	RoomID       string        `json:"room_id" validate:"required,uuid"`
	HotelID      string        `json:"hotel_id" validate:"required,uuid"`
	CheckIn      time.Time     `json:"check_in"`
	CheckOut     time.Time     `json:"check_out"`
	Guests       int           `json:"guests"`
	GuestDetails []GuestDetail `json:"guest_details" validate:"dive"`
}

// CartSnapshot is the frozen content of a checkout: selected players plus
// hotel room/guest assignments.
type CartSnapshot struct {
	PlayerIDs []string   `json:"player_ids"`
	Rooms     []CartRoom `json:"rooms"`

	// Divisions maps player id to the division the player registers into.
	Divisions map[string]string `json:"divisions,omitempty"`
}

// Empty reports whether the cart has nothing to buy.
func (c CartSnapshot) Empty() bool {
	return len(c.PlayerIDs) == 0 && len(c.Rooms) == 0
}

// StripeEventCheckout is a snapshot of a pending purchase prior to payment confirmation.
type StripeEventCheckout struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	EventID         string         `json:"event_id"`
	StripeSessionID string         `json:"stripe_session_id"`
	Cart            CartSnapshot   `json:"cart"`
	Breakdown       Breakdown      `json:"breakdown"`
	Status          CheckoutStatus `json:"status"`
	OrderID         *string        `json:"order_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	PaidAt          *time.Time     `json:"paid_at,omitempty"`
}

// OrderStatus is the state of a finalized order.
type OrderStatus string

const (
	OrderPaid     OrderStatus = "paid"
	OrderRefunded OrderStatus = "refunded"
)

// Order is the finalized purchase record aggregating registered players and
// hotel reservations after payment.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	EventID         string      `json:"event_id"`
	CheckoutID      string      `json:"checkout_id"`
	StripeSessionID string      `json:"stripe_session_id"`
	PaymentIntentID string      `json:"payment_intent_id"`
	AmountCents     int64       `json:"amount_cents"`
	ChargedCents    int64       `json:"charged_cents"`
	Breakdown       Breakdown   `json:"breakdown"`
	Status          OrderStatus `json:"status"`
	AttendanceIDs   []string    `json:"attendance_ids"`
	ReservationIDs  []string    `json:"reservation_ids"`
	CreatedAt       time.Time   `json:"created_at"`
}

// AmountMismatch reports whether Stripe charged something other than the breakdown total.
func (o *Order) AmountMismatch() bool {
	return o.ChargedCents != 0 && o.ChargedCents != o.AmountCents
}

// CheckoutRequest is the payload for starting a checkout.
type CheckoutRequest struct {
	EventID   string            `json:"event_id" validate:"required,uuid"`
	PlayerIDs []string          `json:"player_ids" validate:"dive,uuid"`
	Rooms     []CartRoomRequest `json:"rooms" validate:"dive"`

	// Divisions maps player id to division id. A player may be left out
	// when the event has at most one division.
	Divisions map[string]string `json:"divisions" validate:"dive,keys,uuid,endkeys,uuid"`
}

// CartRoomRequest is a room entry as submitted by the client.
type CartRoomRequest struct {
	RoomID       string        `json:"room_id" validate:"required,uuid"`
	CheckIn      string        `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut     string        `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests       int           `json:"guests" validate:"required,min=1"`
	GuestDetails []GuestDetail `json:"guest_details" validate:"dive"`
}

// CheckoutSession is what StartCheckout hands back to the client.
type CheckoutSession struct {
	CheckoutID string    `json:"checkout_id"`
	SessionID  string    `json:"session_id"`
	URL        string    `json:"url"`
	Breakdown  Breakdown `json:"breakdown"`
}
