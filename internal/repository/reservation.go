package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

const reservationColumns = `id, user_id, event_id, hotel_id, room_id, order_id, checkout_id, check_in, check_out,
	guests, guest_details, additional_guests, status, total_cents, created_at, updated_at`

func scanReservation(row pgx.Row) (model.HotelReservation, error) {
	var (
		r       model.HotelReservation
		details []byte
	)
	err := row.Scan(&r.ID, &r.UserID, &r.EventID, &r.HotelID, &r.RoomID, &r.OrderID, &r.CheckoutID, &r.CheckIn, &r.CheckOut,
		&r.Guests, &details, &r.AdditionalGuests, &r.Status, &r.TotalCents, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(details, &r.GuestDetails); err != nil {
		return r, fmt.Errorf("decode guest details: %w", err)
	}
	return r, nil
}

func guestDetailsJSON(details []model.GuestDetail) ([]byte, error) {
	if details == nil {
		details = []model.GuestDetail{}
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encode guest details: %w", err)
	}
	return b, nil
}

// CountOverlappingReservations counts non-cancelled reservations of roomID
// whose [check_in, check_out) intersects [checkIn, checkOut). excludeID, when
// set, is left out of the count.
func (q *Queries) CountOverlappingReservations(ctx context.Context, roomID string, checkIn, checkOut time.Time, excludeID string) (int, error) {
	var n int
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM hotel_reservations
		 WHERE room_id = $1
		   AND status <> 'cancelled'
		   AND check_in < $3::date
		   AND check_out > $2::date
		   AND ($4::uuid IS NULL OR id <> $4::uuid)`,
		roomID, checkIn, checkOut, nullable(excludeID),
	).Scan(&n)
	if err != nil {
		return 0, wrap("count reservations", err)
	}
	return n, nil
}

// FindPendingReservation returns the user's pending reservation for the same
// event, room, and dates, or ErrNotFound. Holds placed by checkoutID win
// over other pending rows of the user.
func (q *Queries) FindPendingReservation(ctx context.Context, checkoutID, userID, eventID, roomID string, checkIn, checkOut time.Time) (*model.HotelReservation, error) {
	r, err := scanReservation(q.db.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM hotel_reservations
		 WHERE user_id = $2 AND event_id = $3 AND room_id = $4
		   AND check_in = $5::date AND check_out = $6::date
		   AND status = 'pending'
		 ORDER BY (checkout_id IS NOT DISTINCT FROM $1::uuid) DESC, created_at
		 LIMIT 1
		 FOR UPDATE`,
		nullable(checkoutID), userID, eventID, roomID, checkIn, checkOut,
	))
	if err != nil {
		return nil, wrap("find pending reservation", err)
	}
	return &r, nil
}

// CreateReservation inserts a reservation.
func (q *Queries) CreateReservation(ctx context.Context, r *model.HotelReservation) (*model.HotelReservation, error) {
	details, err := guestDetailsJSON(r.GuestDetails)
	if err != nil {
		return nil, err
	}
	r.ID = uuid.New().String()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt

	_, err = q.db.Exec(ctx,
		`INSERT INTO hotel_reservations (`+reservationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		r.ID, r.UserID, r.EventID, r.HotelID, r.RoomID, r.OrderID, r.CheckoutID, r.CheckIn, r.CheckOut,
		r.Guests, details, r.AdditionalGuests, string(r.Status), r.TotalCents, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return nil, wrap("insert reservation", err)
	}
	return r, nil
}

// UpdateReservation overwrites guests, status, total, and order link.
func (q *Queries) UpdateReservation(ctx context.Context, r *model.HotelReservation) error {
	details, err := guestDetailsJSON(r.GuestDetails)
	if err != nil {
		return err
	}
	r.UpdatedAt = time.Now().UTC()

	tag, err := q.db.Exec(ctx,
		`UPDATE hotel_reservations
		 SET order_id = $2, guests = $3, guest_details = $4, additional_guests = $5,
		     status = $6, total_cents = $7, updated_at = $8
		 WHERE id = $1`,
		r.ID, r.OrderID, r.Guests, details, r.AdditionalGuests, string(r.Status), r.TotalCents, r.UpdatedAt,
	)
	if err != nil {
		return wrap("update reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReleaseCheckoutHolds cancels the pending reservations held by checkoutID
// and reports how many were released.
func (q *Queries) ReleaseCheckoutHolds(ctx context.Context, checkoutID string) (int, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE hotel_reservations
		 SET status = 'cancelled', updated_at = NOW()
		 WHERE checkout_id = $1 AND status = 'pending'`,
		checkoutID,
	)
	if err != nil {
		return 0, wrap("release checkout holds", err)
	}
	return int(tag.RowsAffected()), nil
}

// GetReservation returns a reservation by id or ErrNotFound.
func (q *Queries) GetReservation(ctx context.Context, id string) (*model.HotelReservation, error) {
	r, err := scanReservation(q.db.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM hotel_reservations WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get reservation", err)
	}
	return &r, nil
}

// ListReservations returns reservations matching f, newest first.
func (q *Queries) ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.HotelReservation, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+reservationColumns+` FROM hotel_reservations
		 WHERE ($1::uuid IS NULL OR user_id = $1::uuid)
		   AND ($2::uuid IS NULL OR event_id = $2::uuid)
		 ORDER BY created_at DESC`,
		nullable(f.UserID), nullable(f.EventID),
	)
	if err != nil {
		return nil, wrap("list reservations", err)
	}
	out, err := collect(rows, scanReservation)
	return out, wrap("scan reservation", err)
}

// CancelReservation marks a reservation cancelled. Cancelling an already
// cancelled reservation yields ErrConflict.
func (q *Queries) CancelReservation(ctx context.Context, id string) (*model.HotelReservation, error) {
	r, err := scanReservation(q.db.QueryRow(ctx,
		`UPDATE hotel_reservations
		 SET status = 'cancelled', updated_at = NOW()
		 WHERE id = $1 AND status <> 'cancelled'
		 RETURNING `+reservationColumns,
		id,
	))
	if err == nil {
		return &r, nil
	}
	if err = wrap("cancel reservation", err); !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	// No row changed: either it does not exist or it was already cancelled.
	if _, err := q.GetReservation(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: reservation already cancelled", ErrConflict)
}
