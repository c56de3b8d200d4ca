package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

// Hotels is the hotel and reservation service as seen by HTTP.
type Hotels interface {
	CreateHotel(ctx context.Context, req model.HotelRequest) (*model.Hotel, error)
	UpdateHotel(ctx context.Context, id string, req model.HotelRequest) (*model.Hotel, error)
	GetHotel(ctx context.Context, id string) (*model.Hotel, error)
	ListHotels(ctx context.Context, activeOnly bool, cityID string) ([]model.Hotel, error)
	CreateRoom(ctx context.Context, hotelID string, req model.RoomRequest) (*model.HotelRoom, error)
	UpdateRoom(ctx context.Context, id string, req model.RoomRequest) (*model.HotelRoom, error)
	ListRooms(ctx context.Context, hotelID string) ([]model.HotelRoom, error)
	Availability(ctx context.Context, roomID, checkIn, checkOut string) (*model.Availability, error)
	ListReservations(ctx context.Context, p model.Principal, eventID string) ([]model.HotelReservation, error)
	CancelReservation(ctx context.Context, p model.Principal, id string) (*model.HotelReservation, error)
}

// HotelHandler serves hotels, rooms, and reservations.
type HotelHandler struct {
	log *slog.Logger
	svc Hotels
}

// NewHotelHandler constructs a HotelHandler.
func NewHotelHandler(log *slog.Logger, svc Hotels) *HotelHandler {
	return &HotelHandler{log: log, svc: svc}
}

// ─── Hotels ───────────────────────────────────────────────────────────────────

// CreateHotel handles POST /hotels
func (h *HotelHandler) CreateHotel(w http.ResponseWriter, r *http.Request) {
	var req model.HotelRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	hotel, err := h.svc.CreateHotel(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, hotel)
}

// UpdateHotel handles PUT /hotels/{id}
func (h *HotelHandler) UpdateHotel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.HotelRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	hotel, err := h.svc.UpdateHotel(r.Context(), id, req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, hotel)
}

// GetHotel handles GET /hotels/{id}
func (h *HotelHandler) GetHotel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	hotel, err := h.svc.GetHotel(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, hotel)
}

// ListHotels handles GET /hotels
// Query: city, and active=false (staff only) to include inactive hotels.
func (h *HotelHandler) ListHotels(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if isStaff(r) {
		activeOnly = boolQuery(r, "active", true)
	}

	hotels, err := h.svc.ListHotels(r.Context(), activeOnly, r.URL.Query().Get("city"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(hotels))
}

// ─── Rooms ────────────────────────────────────────────────────────────────────

// CreateRoom handles POST /hotels/{id}/rooms
func (h *HotelHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.RoomRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	room, err := h.svc.CreateRoom(r.Context(), id, req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// UpdateRoom handles PUT /rooms/{id}
func (h *HotelHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.RoomRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	room, err := h.svc.UpdateRoom(r.Context(), id, req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// ListRooms handles GET /hotels/{id}/rooms
func (h *HotelHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rooms, err := h.svc.ListRooms(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(rooms))
}

// Availability handles GET /rooms/{id}/availability?check_in=&check_out=
func (h *HotelHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	a, err := h.svc.Availability(r.Context(), id, q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ─── Reservations ─────────────────────────────────────────────────────────────

// ListReservations handles GET /reservations?event_id=
func (h *HotelHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListReservations(r.Context(), principal(r), r.URL.Query().Get("event_id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// CancelReservation handles POST /reservations/{id}/cancel
func (h *HotelHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.CancelReservation(r.Context(), principal(r), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
