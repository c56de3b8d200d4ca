package model

import "time"

// Hotel is a partner property offered alongside events.
type Hotel struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	CityID             *string `json:"city_id,omitempty"`
	Address            string  `json:"address"`
	Phone              string  `json:"phone"`
	Email              string  `json:"email"`
	TaxRateBasisPoints int     `json:"tax_rate_basis_points"`
	Active             bool    `json:"active"`
}

// HotelRoom is a room type of a hotel. Stock counts identical rooms.
type HotelRoom struct {
	ID                 string `json:"id"`
	HotelID            string `json:"hotel_id"`
	RoomType           string `json:"room_type"`
	Capacity           int    `json:"capacity"`
	Stock              int    `json:"stock"`
	PricePerNightCents int64  `json:"price_per_night_cents"`
	Active             bool   `json:"active"`
}

// ReservationStatus is the lifecycle state of a hotel reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// GuestType distinguishes adult and child guests.
type GuestType string

const (
	GuestAdult GuestType = "adult"
	GuestChild GuestType = "child"
)

// GuestDetail describes a named guest on a reservation.
type GuestDetail struct {
	Name string    `json:"name" validate:"required,max=150"`
	Type GuestType `json:"type" validate:"required,oneof=adult child"`
	Age  *int      `json:"age,omitempty" validate:"omitempty,min=0,max=120"`
}

// HotelReservation is a persisted room booking tied to a user, event, and date range.
// A pending reservation is a hold placed by an open checkout (CheckoutID).
type HotelReservation struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	EventID          string            `json:"event_id"`
	HotelID          string            `json:"hotel_id"`
	RoomID           string            `json:"room_id"`
	OrderID          *string           `json:"order_id,omitempty"`
	CheckoutID       *string           `json:"checkout_id,omitempty"`
	CheckIn          time.Time         `json:"check_in"`
	CheckOut         time.Time         `json:"check_out"`
	Guests           int               `json:"guests"`
	GuestDetails     []GuestDetail     `json:"guest_details"`
	AdditionalGuests int               `json:"additional_guests"`
	Status           ReservationStatus `json:"status"`
	TotalCents       int64             `json:"total_cents"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ReservationFilter narrows ListReservations.
type ReservationFilter struct {
	UserID  string
	EventID string
}

// Availability is the remaining stock of a room over a date range.
type Availability struct {
	RoomID    string    `json:"room_id"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Stock     int       `json:"stock"`
	Booked    int       `json:"booked"`
	Remaining int       `json:"remaining"`
}

// HotelRequest is the payload for creating or updating a hotel.
type HotelRequest struct {
	Name               string `json:"name" validate:"required,max=200"`
	CityID             string `json:"city_id" validate:"omitempty,uuid"`
	Address            string `json:"address" validate:"max=300"`
	Phone              string `json:"phone" validate:"max=32"`
	Email              string `json:"email" validate:"omitempty,email"`
	TaxRateBasisPoints int    `json:"tax_rate_basis_points" validate:"min=0,max=10000"`
	Active             *bool  `json:"active"`
}

// RoomRequest is the payload for creating or updating a hotel room.
type RoomRequest struct {
	RoomType           string `json:"room_type" validate:"required,max=100"`
	Capacity           int    `json:"capacity" validate:"required,min=1,max=20"`
	Stock              int    `json:"stock" validate:"min=0"`
	PricePerNightCents int64  `json:"price_per_night_cents" validate:"min=0"`
	Active             *bool  `json:"active"`
}
