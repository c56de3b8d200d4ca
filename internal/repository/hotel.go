package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

const hotelColumns = `id, name, city_id, address, phone, email, tax_rate_basis_points, active`

func scanHotel(row pgx.Row) (model.Hotel, error) {
	var h model.Hotel
	err := row.Scan(&h.ID, &h.Name, &h.CityID, &h.Address, &h.Phone, &h.Email, &h.TaxRateBasisPoints, &h.Active)
	return h, err
}

// CreateHotel inserts a hotel.
func (q *Queries) CreateHotel(ctx context.Context, h *model.Hotel) (*model.Hotel, error) {
	h.ID = uuid.New().String()
	_, err := q.db.Exec(ctx,
		`INSERT INTO hotels (`+hotelColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		h.ID, h.Name, h.CityID, h.Address, h.Phone, h.Email, h.TaxRateBasisPoints, h.Active,
	)
	if err != nil {
		return nil, wrap("insert hotel", err)
	}
	return h, nil
}

// UpdateHotel overwrites the mutable hotel fields.
func (q *Queries) UpdateHotel(ctx context.Context, h *model.Hotel) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE hotels
		 SET name = $2, city_id = $3, address = $4, phone = $5, email = $6, tax_rate_basis_points = $7, active = $8
		 WHERE id = $1`,
		h.ID, h.Name, h.CityID, h.Address, h.Phone, h.Email, h.TaxRateBasisPoints, h.Active,
	)
	if err != nil {
		return wrap("update hotel", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetHotel returns a hotel by id or ErrNotFound.
func (q *Queries) GetHotel(ctx context.Context, id string) (*model.Hotel, error) {
	h, err := scanHotel(q.db.QueryRow(ctx, `SELECT `+hotelColumns+` FROM hotels WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get hotel", err)
	}
	return &h, nil
}

// ListHotels returns hotels by name. activeOnly and cityID narrow the result.
func (q *Queries) ListHotels(ctx context.Context, activeOnly bool, cityID string) ([]model.Hotel, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+hotelColumns+` FROM hotels
		 WHERE (active OR NOT $1)
		   AND ($2::uuid IS NULL OR city_id = $2::uuid)
		 ORDER BY name`,
		activeOnly, nullable(cityID),
	)
	if err != nil {
		return nil, wrap("list hotels", err)
	}
	out, err := collect(rows, scanHotel)
	return out, wrap("scan hotel", err)
}

// GetHotelsByIDs returns the hotels among ids that exist.
func (q *Queries) GetHotelsByIDs(ctx context.Context, ids []string) ([]model.Hotel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+hotelColumns+` FROM hotels WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, wrap("get hotels", err)
	}
	out, err := collect(rows, scanHotel)
	return out, wrap("scan hotel", err)
}

// ─── Rooms ────────────────────────────────────────────────────────────────────

const roomColumns = `id, hotel_id, room_type, capacity, stock, price_per_night_cents, active`

func scanRoom(row pgx.Row) (model.HotelRoom, error) {
	var r model.HotelRoom
	err := row.Scan(&r.ID, &r.HotelID, &r.RoomType, &r.Capacity, &r.Stock, &r.PricePerNightCents, &r.Active)
	return r, err
}

// CreateRoom inserts a room type under r.HotelID.
func (q *Queries) CreateRoom(ctx context.Context, r *model.HotelRoom) (*model.HotelRoom, error) {
	r.ID = uuid.New().String()
	_, err := q.db.Exec(ctx,
		`INSERT INTO hotel_rooms (`+roomColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.HotelID, r.RoomType, r.Capacity, r.Stock, r.PricePerNightCents, r.Active,
	)
	if err != nil {
		return nil, wrap("insert room", err)
	}
	return r, nil
}

// UpdateRoom overwrites the mutable room fields.
func (q *Queries) UpdateRoom(ctx context.Context, r *model.HotelRoom) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE hotel_rooms
		 SET room_type = $2, capacity = $3, stock = $4, price_per_night_cents = $5, active = $6
		 WHERE id = $1`,
		r.ID, r.RoomType, r.Capacity, r.Stock, r.PricePerNightCents, r.Active,
	)
	if err != nil {
		return wrap("update room", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRoom returns a room by id or ErrNotFound.
func (q *Queries) GetRoom(ctx context.Context, id string) (*model.HotelRoom, error) {
	r, err := scanRoom(q.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM hotel_rooms WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get room", err)
	}
	return &r, nil
}

// LockRoom reads a room with SELECT … FOR UPDATE. It must run inside a
// transaction; concurrent finalizations touching the same room serialise here.
func (q *Queries) LockRoom(ctx context.Context, id string) (*model.HotelRoom, error) {
	r, err := scanRoom(q.db.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM hotel_rooms WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, wrap("lock room", err)
	}
	return &r, nil
}

// ListRooms returns the rooms of a hotel.
func (q *Queries) ListRooms(ctx context.Context, hotelID string) ([]model.HotelRoom, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+roomColumns+` FROM hotel_rooms WHERE hotel_id = $1 ORDER BY price_per_night_cents, room_type`,
		hotelID,
	)
	if err != nil {
		return nil, wrap("list rooms", err)
	}
	out, err := collect(rows, scanRoom)
	return out, wrap("scan room", err)
}
