package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
	"github.com/Shivanand-hulikatti/nsc-international/internal/repository"
)

func date(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestHotelAndRooms(t *testing.T) {
	ctx := context.Background()
	svc := NewHotelService(discardLogger(), newMemStore())

	hotel, err := svc.CreateHotel(ctx, model.HotelRequest{Name: " Harbor Inn ", Email: "Desk@Harbor.test", TaxRateBasisPoints: 1000})
	require.NoError(t, err)
	assert.Equal(t, "Harbor Inn", hotel.Name)
	assert.Equal(t, "desk@harbor.test", hotel.Email)
	assert.True(t, hotel.Active)

	_, err = svc.CreateHotel(ctx, model.HotelRequest{Name: "Bad", TaxRateBasisPoints: 10001})
	require.ErrorIs(t, err, ErrInvalidInput)

	room, err := svc.CreateRoom(ctx, hotel.ID, model.RoomRequest{RoomType: "Double Queen", Capacity: 4, Stock: 2, PricePerNightCents: 10000})
	require.NoError(t, err)
	assert.Equal(t, hotel.ID, room.HotelID)
	assert.True(t, room.Active)

	_, err = svc.CreateRoom(ctx, hotel.ID, model.RoomRequest{RoomType: "Empty", Capacity: 0})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateRoom(ctx, "6b1f7c8e-3a2d-4e5f-9a0b-1c2d3e4f5a6b", model.RoomRequest{RoomType: "Orphan", Capacity: 2})
	require.ErrorIs(t, err, repository.ErrNotFound)

	off := false
	updated, err := svc.UpdateRoom(ctx, room.ID, model.RoomRequest{RoomType: "Double Queen", Capacity: 4, Stock: 3, PricePerNightCents: 12000, Active: &off})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Stock)
	assert.False(t, updated.Active)

	rooms, err := svc.ListRooms(ctx, hotel.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, int64(12000), rooms[0].PricePerNightCents)
}

func TestAvailability(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewHotelService(discardLogger(), store)

	room, err := store.CreateRoom(ctx, &model.HotelRoom{HotelID: "h", RoomType: "King", Capacity: 2, Stock: 2, Active: true})
	require.NoError(t, err)

	book := func(in, out string, status model.ReservationStatus) {
		_, err := store.CreateReservation(ctx, &model.HotelReservation{
			RoomID: room.ID, CheckIn: date(in), CheckOut: date(out), Guests: 1, Status: status,
		})
		require.NoError(t, err)
	}
	book("2026-07-09", "2026-07-12", model.ReservationConfirmed)
	book("2026-07-11", "2026-07-13", model.ReservationPending)
	book("2026-07-09", "2026-07-12", model.ReservationCancelled)
	book("2026-07-12", "2026-07-14", model.ReservationConfirmed) // starts on checkout day

	tests := []struct {
		name      string
		in, out   string
		booked    int
		remaining int
	}{
		{"full overlap", "2026-07-09", "2026-07-12", 2, 0},
		{"first night only", "2026-07-09", "2026-07-10", 1, 1},
		{"back to back", "2026-07-14", "2026-07-15", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := svc.Availability(ctx, room.ID, tt.in, tt.out)
			require.NoError(t, err)
			assert.Equal(t, tt.booked, a.Booked)
			assert.Equal(t, tt.remaining, a.Remaining)
			assert.Equal(t, 2, a.Stock)
		})
	}

	_, err = svc.Availability(ctx, room.ID, "2026-07-10", "2026-07-10")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAvailability_InactiveRoomHasNothingLeft(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewHotelService(discardLogger(), store)

	room, err := store.CreateRoom(ctx, &model.HotelRoom{HotelID: "h", RoomType: "King", Capacity: 2, Stock: 5})
	require.NoError(t, err)

	a, err := svc.Availability(ctx, room.ID, "2026-07-10", "2026-07-11")
	require.NoError(t, err)
	assert.Zero(t, a.Remaining)
}

func TestCancelReservation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewHotelService(discardLogger(), store)

	r, err := store.CreateReservation(ctx, &model.HotelReservation{
		UserID: "owner", RoomID: "room", CheckIn: date("2026-07-09"), CheckOut: date("2026-07-10"), Status: model.ReservationConfirmed,
	})
	require.NoError(t, err)

	_, err = svc.CancelReservation(ctx, model.Principal{UserID: "intruder"}, r.ID)
	require.ErrorIs(t, err, ErrForbidden)

	cancelled, err := svc.CancelReservation(ctx, model.Principal{UserID: "owner"}, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, cancelled.Status)

	_, err = svc.CancelReservation(ctx, model.Principal{UserID: "admin", IsStaff: true}, r.ID)
	require.ErrorIs(t, err, repository.ErrConflict)

	mine, err := svc.ListReservations(ctx, model.Principal{UserID: "owner"}, "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := svc.ListReservations(ctx, model.Principal{UserID: "intruder"}, "")
	require.NoError(t, err)
	assert.Empty(t, theirs)
}
