package model

import "time"

// EventStatus is the publication state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventClosed    EventStatus = "closed"
	EventCancelled EventStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventPublished, EventClosed, EventCancelled:
		return true
	}
	return false
}

// EventType classifies events (tournament, showcase, league...).
type EventType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Division is an age/skill bracket players register into.
type Division struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	AgeGroup string `json:"age_group"`
	Active   bool   `json:"active"`
}

// Contact is an organiser-side person listed on an event.
type Contact struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Active bool   `json:"active"`
}

// Event is a tournament/showcase/league record organizers publish.
type Event struct {
	ID                   string      `json:"id"`
	Title                string      `json:"title"`
	Slug                 string      `json:"slug"`
	EventTypeID          *string     `json:"event_type_id,omitempty"`
	SiteID               *string     `json:"site_id,omitempty"`
	CityID               *string     `json:"city_id,omitempty"`
	StartDate            time.Time   `json:"start_date"`
	EndDate              time.Time   `json:"end_date"`
	RegistrationDeadline *time.Time  `json:"registration_deadline,omitempty"`
	EntryFeeCents        int64       `json:"entry_fee_cents"`
	Status               EventStatus `json:"status"`
	Description          string      `json:"description"`
	DivisionIDs          []string    `json:"division_ids"`
	HotelIDs             []string    `json:"hotel_ids"`
	ContactIDs           []string    `json:"contact_ids"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// RegistrationOpen reports whether players can still be registered at now.
// The last open day is the registration deadline, or the end date when the
// event has no deadline; that day itself is still open.
func (e *Event) RegistrationOpen(now time.Time) bool {
	if e.Status != EventPublished {
		return false
	}
	last := e.EndDate
	if e.RegistrationDeadline != nil {
		last = *e.RegistrationDeadline
	}
	return now.Before(truncateDay(last).AddDate(0, 0, 1))
}

// HasDivision reports whether divisionID is linked to the event.
func (e *Event) HasDivision(divisionID string) bool {
	for _, id := range e.DivisionIDs {
		if id == divisionID {
			return true
		}
	}
	return false
}

// HasHotel reports whether hotelID is linked to the event.
func (e *Event) HasHotel(hotelID string) bool {
	for _, id := range e.HotelIDs {
		if id == hotelID {
			return true
		}
	}
	return false
}

// EventFilter narrows ListEvents.
type EventFilter struct {
	Status      EventStatus
	EventTypeID string
	UpcomingAt  *time.Time
}

// AttendanceStatus tracks whether an attendance has been paid for.
type AttendanceStatus string

const (
	AttendancePending   AttendanceStatus = "pending"
	AttendancePaid      AttendanceStatus = "paid"
	AttendanceCancelled AttendanceStatus = "cancelled"
)

// EventAttendance is a player registered into an event.
type EventAttendance struct {
	ID         string           `json:"id"`
	EventID    string           `json:"event_id"`
	PlayerID   string           `json:"player_id"`
	UserID     string           `json:"user_id"`
	DivisionID *string          `json:"division_id,omitempty"`
	OrderID    *string          `json:"order_id,omitempty"`
	Status     AttendanceStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
}

// EventTypeRequest is the payload for creating an event type.
type EventTypeRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// DivisionRequest is the payload for creating a division.
type DivisionRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	AgeGroup string `json:"age_group" validate:"max=20"`
}

// DivisionStatusRequest toggles a division.
type DivisionStatusRequest struct {
	Active bool `json:"active"`
}

// ContactRequest is the payload for creating an event contact.
type ContactRequest struct {
	Name  string `json:"name" validate:"required,max=150"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"max=32"`
}

// EventRequest is the payload for creating or updating an event.
type EventRequest struct {
	Title                string      `json:"title" validate:"required,max=200"`
	EventTypeID          string      `json:"event_type_id" validate:"omitempty,uuid"`
	SiteID               string      `json:"site_id" validate:"omitempty,uuid"`
	CityID               string      `json:"city_id" validate:"omitempty,uuid"`
	StartDate            string      `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate              string      `json:"end_date" validate:"required,datetime=2006-01-02"`
	RegistrationDeadline string      `json:"registration_deadline" validate:"omitempty,datetime=2006-01-02"`
	EntryFeeCents        int64       `json:"entry_fee_cents" validate:"min=0"`
	Status               EventStatus `json:"status"`
	Description          string      `json:"description"`
	DivisionIDs          []string    `json:"division_ids" validate:"dive,uuid"`
	HotelIDs             []string    `json:"hotel_ids" validate:"dive,uuid"`
	ContactIDs           []string    `json:"contact_ids" validate:"dive,uuid"`
}
