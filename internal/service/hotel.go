package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

// HotelStore is the persistence the hotel service needs.
type HotelStore interface {
	CreateHotel(ctx context.Context, h *model.Hotel) (*model.Hotel, error)
	UpdateHotel(ctx context.Context, h *model.Hotel) error
	GetHotel(ctx context.Context, id string) (*model.Hotel, error)
	ListHotels(ctx context.Context, activeOnly bool, cityID string) ([]model.Hotel, error)

	CreateRoom(ctx context.Context, r *model.HotelRoom) (*model.HotelRoom, error)
	UpdateRoom(ctx context.Context, r *model.HotelRoom) error
	GetRoom(ctx context.Context, id string) (*model.HotelRoom, error)
	ListRooms(ctx context.Context, hotelID string) ([]model.HotelRoom, error)

	CountOverlappingReservations(ctx context.Context, roomID string, checkIn, checkOut time.Time, excludeID string) (int, error)
	GetReservation(ctx context.Context, id string) (*model.HotelReservation, error)
	ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.HotelReservation, error)
	CancelReservation(ctx context.Context, id string) (*model.HotelReservation, error)
}

// HotelService manages hotels, their rooms, and reservations.
type HotelService struct {
	log   *slog.Logger
	store HotelStore
}

// NewHotelService constructs a HotelService.
func NewHotelService(log *slog.Logger, store HotelStore) *HotelService {
	return &HotelService{log: log, store: store}
}

func applyHotelRequest(h *model.Hotel, req model.HotelRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return err
	}
	h.Name = req.Name
	h.CityID = nullableID(req.CityID)
	h.Address = strings.TrimSpace(req.Address)
	h.Phone = strings.TrimSpace(req.Phone)
	h.Email = req.Email
	h.TaxRateBasisPoints = req.TaxRateBasisPoints
	if req.Active != nil {
		h.Active = *req.Active
	}
	return nil
}

// CreateHotel adds a hotel. Hotels are active unless the request says otherwise.
func (s *HotelService) CreateHotel(ctx context.Context, req model.HotelRequest) (*model.Hotel, error) {
	h := &model.Hotel{Active: true}
	if err := applyHotelRequest(h, req); err != nil {
		return nil, err
	}
	out, err := s.store.CreateHotel(ctx, h)
	return out, refErr(err)
}

// UpdateHotel overwrites a hotel.
func (s *HotelService) UpdateHotel(ctx context.Context, id string, req model.HotelRequest) (*model.Hotel, error) {
	h, err := s.store.GetHotel(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyHotelRequest(h, req); err != nil {
		return nil, err
	}
	if err := s.store.UpdateHotel(ctx, h); err != nil {
		return nil, refErr(err)
	}
	return h, nil
}

// GetHotel returns a hotel by id.
func (s *HotelService) GetHotel(ctx context.Context, id string) (*model.Hotel, error) {
	return s.store.GetHotel(ctx, id)
}

// ListHotels returns hotels, optionally only active ones in cityID.
func (s *HotelService) ListHotels(ctx context.Context, activeOnly bool, cityID string) ([]model.Hotel, error) {
	return s.store.ListHotels(ctx, activeOnly, cityID)
}

// ─── Rooms ────────────────────────────────────────────────────────────────────

func applyRoomRequest(r *model.HotelRoom, req model.RoomRequest) error {
	req.RoomType = strings.TrimSpace(req.RoomType)
	if err := validateStruct(req); err != nil {
		return err
	}
	r.RoomType = req.RoomType
	r.Capacity = req.Capacity
	r.Stock = req.Stock
	r.PricePerNightCents = req.PricePerNightCents
	if req.Active != nil {
		r.Active = *req.Active
	}
	return nil
}

// CreateRoom adds a room type to a hotel.
func (s *HotelService) CreateRoom(ctx context.Context, hotelID string, req model.RoomRequest) (*model.HotelRoom, error) {
	if _, err := s.store.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}
	r := &model.HotelRoom{HotelID: hotelID, Active: true}
	if err := applyRoomRequest(r, req); err != nil {
		return nil, err
	}
	return s.store.CreateRoom(ctx, r)
}

// UpdateRoom overwrites a room type.
func (s *HotelService) UpdateRoom(ctx context.Context, id string, req model.RoomRequest) (*model.HotelRoom, error) {
	r, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyRoomRequest(r, req); err != nil {
		return nil, err
	}
	if err := s.store.UpdateRoom(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListRooms returns the rooms of a hotel.
func (s *HotelService) ListRooms(ctx context.Context, hotelID string) ([]model.HotelRoom, error) {
	if _, err := s.store.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}
	return s.store.ListRooms(ctx, hotelID)
}

// Availability returns the remaining stock of a room over [checkIn, checkOut).
func (s *HotelService) Availability(ctx context.Context, roomID, checkIn, checkOut string) (*model.Availability, error) {
	in, err := mustParseDate("check_in", checkIn)
	if err != nil {
		return nil, err
	}
	out, err := mustParseDate("check_out", checkOut)
	if err != nil {
		return nil, err
	}
	if !out.After(in) {
		return nil, invalid("check_out must be after check_in")
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	booked, err := s.store.CountOverlappingReservations(ctx, roomID, in, out, "")
	if err != nil {
		return nil, err
	}

	remaining := room.Stock - booked
	if remaining < 0 || !room.Active {
		remaining = 0
	}
	return &model.Availability{
		RoomID:    roomID,
		CheckIn:   in,
		CheckOut:  out,
		Stock:     room.Stock,
		Booked:    booked,
		Remaining: remaining,
	}, nil
}

// ─── Reservations ─────────────────────────────────────────────────────────────

// ListReservations returns the caller's reservations, or everyone's for
// staff. eventID narrows the result when set.
func (s *HotelService) ListReservations(ctx context.Context, p model.Principal, eventID string) ([]model.HotelReservation, error) {
	if p.UserID == "" {
		return nil, ErrUnauthorized
	}
	f := model.ReservationFilter{UserID: p.UserID, EventID: eventID}
	if p.IsStaff {
		f.UserID = ""
	}
	return s.store.ListReservations(ctx, f)
}

// CancelReservation cancels a reservation owned by the caller (or any, for staff).
func (s *HotelService) CancelReservation(ctx context.Context, p model.Principal, id string) (*model.HotelReservation, error) {
	const op = "service.Hotel.CancelReservation"

	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(r.UserID) {
		return nil, ErrForbidden
	}

	cancelled, err := s.store.CancelReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("reservation cancelled",
		slog.String("op", op),
		slog.String("reservation_id", id),
		slog.String("by", p.UserID),
	)
	return cancelled, nil
}
