package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
	"github.com/Shivanand-hulikatti/nsc-international/internal/payments"
	"github.com/Shivanand-hulikatti/nsc-international/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memData is one consistent snapshot of every table.
type memData struct {
	users        map[string]model.User
	players      map[string]model.Player
	countries    map[string]model.Country
	states       map[string]model.State
	cities       map[string]model.City
	sites        map[string]model.Site
	eventTypes   map[string]model.EventType
	divisions    map[string]model.Division
	contacts     map[string]model.Contact
	events       map[string]model.Event
	hotels       map[string]model.Hotel
	rooms        map[string]model.HotelRoom
	reservations map[string]model.HotelReservation
	attendance   map[string]model.EventAttendance
	orders       map[string]model.Order
	checkouts    map[string]model.StripeEventCheckout
	outbox       []model.OutboxRecord
}

func newMemData() *memData {
	return &memData{
		users:        map[string]model.User{},
		players:      map[string]model.Player{},
		countries:    map[string]model.Country{},
		states:       map[string]model.State{},
		cities:       map[string]model.City{},
		sites:        map[string]model.Site{},
		eventTypes:   map[string]model.EventType{},
		divisions:    map[string]model.Division{},
		contacts:     map[string]model.Contact{},
		events:       map[string]model.Event{},
		hotels:       map[string]model.Hotel{},
		rooms:        map[string]model.HotelRoom{},
		reservations: map[string]model.HotelReservation{},
		attendance:   map[string]model.EventAttendance{},
		orders:       map[string]model.Order{},
		checkouts:    map[string]model.StripeEventCheckout{},
	}
}

func (d *memData) clone() *memData {
	return &memData{
		users:        maps.Clone(d.users),
		players:      maps.Clone(d.players),
		countries:    maps.Clone(d.countries),
		states:       maps.Clone(d.states),
		cities:       maps.Clone(d.cities),
		sites:        maps.Clone(d.sites),
		eventTypes:   maps.Clone(d.eventTypes),
		divisions:    maps.Clone(d.divisions),
		contacts:     maps.Clone(d.contacts),
		events:       maps.Clone(d.events),
		hotels:       maps.Clone(d.hotels),
		rooms:        maps.Clone(d.rooms),
		reservations: maps.Clone(d.reservations),
		attendance:   maps.Clone(d.attendance),
		orders:       maps.Clone(d.orders),
		checkouts:    maps.Clone(d.checkouts),
		outbox:       append([]model.OutboxRecord(nil), d.outbox...),
	}
}

// memStore is an in-memory stand-in for repository.Store. Transactions run
// one at a time on a snapshot that replaces the live data on commit.
type memStore struct {
	txMu  *sync.Mutex
	mu    sync.Mutex
	d     *memData
	fails map[string]error
}

func newMemStore() *memStore {
	return &memStore{txMu: &sync.Mutex{}, d: newMemData(), fails: map[string]error{}}
}

func (s *memStore) fail(method string) error {
	return s.fails[method]
}

func (s *memStore) WithinTx(ctx context.Context, fn func(q CheckoutQueries) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.d.clone()
	s.mu.Unlock()

	tx := &memStore{txMu: &sync.Mutex{}, d: snap, fails: s.fails}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.d = snap
	s.mu.Unlock()
	return nil
}

func notFound(kind string) error {
	return fmt.Errorf("%s: %w", kind, repository.ErrNotFound)
}

// ─── Accounts ─────────────────────────────────────────────────────────────────

func (s *memStore) CreateUser(_ context.Context, u *model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.d.users {
		if existing.Email == u.Email {
			return nil, repository.ErrConflict
		}
	}
	out := *u
	out.ID = uuid.NewString()
	out.CreatedAt = time.Now()
	s.d.users[out.ID] = out
	return &out, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.d.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, notFound("user")
}

func (s *memStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.d.users[id]
	if !ok {
		return nil, notFound("user")
	}
	return &u, nil
}

func (s *memStore) CreatePlayer(_ context.Context, p *model.Player) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *p
	out.ID = uuid.NewString()
	s.d.players[out.ID] = out
	return &out, nil
}

func (s *memStore) UpdatePlayer(_ context.Context, p *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.d.players[p.ID]; !ok {
		return notFound("player")
	}
	s.d.players[p.ID] = *p
	return nil
}

func (s *memStore) GetPlayer(_ context.Context, id string) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.d.players[id]
	if !ok {
		return nil, notFound("player")
	}
	return &p, nil
}

func (s *memStore) ListPlayersByParent(_ context.Context, parentID string) ([]model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Player
	for _, p := range s.d.players {
		if p.ParentID == parentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	return out, nil
}

// ─── Locations ────────────────────────────────────────────────────────────────

func (s *memStore) EnsureCountry(_ context.Context, name, code string) (*model.Country, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.d.countries {
		if c.Name == name {
			return &c, false, nil
		}
	}
	c := model.Country{ID: uuid.NewString(), Name: name, Code: code}
	s.d.countries[c.ID] = c
	return &c, true, nil
}

func (s *memStore) EnsureState(_ context.Context, countryID, name, code string) (*model.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.d.states {
		if st.CountryID == countryID && st.Name == name {
			return &st, false, nil
		}
	}
	st := model.State{ID: uuid.NewString(), CountryID: countryID, Name: name, Code: code}
	s.d.states[st.ID] = st
	return &st, true, nil
}

func (s *memStore) EnsureCity(_ context.Context, stateID, name string) (*model.City, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.d.cities {
		if c.StateID == stateID && c.Name == name {
			return &c, false, nil
		}
	}
	c := model.City{ID: uuid.NewString(), StateID: stateID, Name: name}
	s.d.cities[c.ID] = c
	return &c, true, nil
}

func (s *memStore) EnsureSite(_ context.Context, cityID, name, address string) (*model.Site, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, site := range s.d.sites {
		if site.CityID == cityID && site.Name == name {
			return &site, false, nil
		}
	}
	site := model.Site{ID: uuid.NewString(), CityID: cityID, Name: name, Address: address, Active: true}
	s.d.sites[site.ID] = site
	return &site, true, nil
}

func (s *memStore) CreateSite(_ context.Context, site *model.Site) (*model.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.d.sites {
		if existing.CityID == site.CityID && existing.Name == site.Name {
			return nil, repository.ErrConflict
		}
	}
	out := *site
	out.ID = uuid.NewString()
	s.d.sites[out.ID] = out
	return &out, nil
}

func (s *memStore) GetCountry(_ context.Context, id string) (*model.Country, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.d.countries[id]
	if !ok {
		return nil, notFound("country")
	}
	return &c, nil
}

func (s *memStore) GetState(_ context.Context, id string) (*model.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.d.states[id]
	if !ok {
		return nil, notFound("state")
	}
	return &st, nil
}

func (s *memStore) GetCity(_ context.Context, id string) (*model.City, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.d.cities[id]
	if !ok {
		return nil, notFound("city")
	}
	return &c, nil
}

func (s *memStore) ListCountries(_ context.Context) ([]model.Country, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Country, 0, len(s.d.countries))
	for _, c := range s.d.countries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) ListStates(_ context.Context, countryID string) ([]model.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.State
	for _, st := range s.d.states {
		if st.CountryID == countryID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) ListCities(_ context.Context, stateID string) ([]model.City, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.City
	for _, c := range s.d.cities {
		if c.StateID == stateID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) ListSites(_ context.Context, cityID string) ([]model.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Site
	for _, site := range s.d.sites {
		if site.CityID == cityID {
			out = append(out, site)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ─── Events ───────────────────────────────────────────────────────────────────

func (s *memStore) CreateEventType(_ context.Context, name string) (*model.EventType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, et := range s.d.eventTypes {
		if strings.EqualFold(et.Name, name) {
			return nil, repository.ErrConflict
		}
	}
	et := model.EventType{ID: uuid.NewString(), Name: name}
	s.d.eventTypes[et.ID] = et
	return &et, nil
}

func (s *memStore) ListEventTypes(_ context.Context) ([]model.EventType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.EventType, 0, len(s.d.eventTypes))
	for _, et := range s.d.eventTypes {
		out = append(out, et)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) CreateDivision(_ context.Context, d *model.Division) (*model.Division, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *d
	out.ID = uuid.NewString()
	s.d.divisions[out.ID] = out
	return &out, nil
}

func (s *memStore) SetDivisionActive(_ context.Context, id string, active bool) (*model.Division, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.d.divisions[id]
	if !ok {
		return nil, notFound("division")
	}
	d.Active = active
	s.d.divisions[id] = d
	return &d, nil
}

func (s *memStore) ListDivisions(_ context.Context, activeOnly bool) ([]model.Division, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Division
	for _, d := range s.d.divisions {
		if d.Active || !activeOnly {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) GetDivisionsByIDs(_ context.Context, ids []string) ([]model.Division, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Division
	for _, id := range ids {
		if d, ok := s.d.divisions[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memStore) CreateContact(_ context.Context, c *model.Contact) (*model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *c
	out.ID = uuid.NewString()
	s.d.contacts[out.ID] = out
	return &out, nil
}

func (s *memStore) ListContacts(_ context.Context) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Contact, 0, len(s.d.contacts))
	for _, c := range s.d.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) GetContactsByIDs(_ context.Context, ids []string) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Contact
	for _, id := range ids {
		if c, ok := s.d.contacts[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) GetHotelsByIDs(_ context.Context, ids []string) ([]model.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Hotel
	for _, id := range ids {
		if h, ok := s.d.hotels[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *memStore) slugTaken(slug, exceptID string) bool {
	for _, e := range s.d.events {
		if e.Slug == slug && e.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *memStore) CreateEvent(_ context.Context, e *model.Event) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slugTaken(e.Slug, "") {
		return nil, repository.ErrConflict
	}
	out := *e
	out.ID = uuid.NewString()
	out.CreatedAt = time.Now()
	out.UpdatedAt = out.CreatedAt
	s.d.events[out.ID] = out
	return &out, nil
}

func (s *memStore) UpdateEvent(_ context.Context, e *model.Event) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.d.events[e.ID]; !ok {
		return nil, notFound("event")
	}
	if s.slugTaken(e.Slug, e.ID) {
		return nil, repository.ErrConflict
	}
	out := *e
	out.UpdatedAt = time.Now()
	s.d.events[out.ID] = out
	return &out, nil
}

func (s *memStore) GetEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.d.events[id]
	if !ok {
		return nil, notFound("event")
	}
	return &e, nil
}

func (s *memStore) ListEvents(_ context.Context, f model.EventFilter) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, e := range s.d.events {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.EventTypeID != "" && (e.EventTypeID == nil || *e.EventTypeID != f.EventTypeID) {
			continue
		}
		if f.UpcomingAt != nil && e.EndDate.Before(*f.UpcomingAt) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *memStore) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.d.events[id]; !ok {
		return notFound("event")
	}
	for _, c := range s.d.checkouts {
		if c.EventID == id {
			return repository.ErrInvalidReference
		}
	}
	delete(s.d.events, id)
	return nil
}

// ─── Hotels ───────────────────────────────────────────────────────────────────

func (s *memStore) CreateHotel(_ context.Context, h *model.Hotel) (*model.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *h
	out.ID = uuid.NewString()
	s.d.hotels[out.ID] = out
	return &out, nil
}

func (s *memStore) UpdateHotel(_ context.Context, h *model.Hotel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.d.hotels[h.ID]; !ok {
		return notFound("hotel")
	}
	s.d.hotels[h.ID] = *h
	return nil
}

func (s *memStore) GetHotel(_ context.Context, id string) (*model.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.d.hotels[id]
	if !ok {
		return nil, notFound("hotel")
	}
	return &h, nil
}

func (s *memStore) ListHotels(_ context.Context, activeOnly bool, cityID string) ([]model.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Hotel
	for _, h := range s.d.hotels {
		if activeOnly && !h.Active {
			continue
		}
		if cityID != "" && (h.CityID == nil || *h.CityID != cityID) {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) CreateRoom(_ context.Context, r *model.HotelRoom) (*model.HotelRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *r
	out.ID = uuid.NewString()
	s.d.rooms[out.ID] = out
	return &out, nil
}

func (s *memStore) UpdateRoom(_ context.Context, r *model.HotelRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.d.rooms[r.ID]; !ok {
		return notFound("room")
	}
	s.d.rooms[r.ID] = *r
	return nil
}

func (s *memStore) GetRoom(_ context.Context, id string) (*model.HotelRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.d.rooms[id]
	if !ok {
		return nil, notFound("room")
	}
	return &r, nil
}

func (s *memStore) LockRoom(ctx context.Context, id string) (*model.HotelRoom, error) {
	return s.GetRoom(ctx, id)
}

func (s *memStore) ListRooms(_ context.Context, hotelID string) ([]model.HotelRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.HotelRoom
	for _, r := range s.d.rooms {
		if r.HotelID == hotelID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomType < out[j].RoomType })
	return out, nil
}

// ─── Reservations ─────────────────────────────────────────────────────────────

func (s *memStore) CountOverlappingReservations(_ context.Context, roomID string, checkIn, checkOut time.Time, excludeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.d.reservations {
		if r.RoomID != roomID || r.ID == excludeID || r.Status == model.ReservationCancelled {
			continue
		}
		if model.Overlaps(r.CheckIn, r.CheckOut, checkIn, checkOut) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) FindPendingReservation(_ context.Context, checkoutID, userID, eventID, roomID string, checkIn, checkOut time.Time) (*model.HotelReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []model.HotelReservation
	for _, r := range s.d.reservations {
		if r.UserID == userID && r.EventID == eventID && r.RoomID == roomID &&
			r.CheckIn.Equal(checkIn) && r.CheckOut.Equal(checkOut) && r.Status == model.ReservationPending {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return nil, notFound("reservation")
	}
	heldBy := func(r model.HotelReservation) bool { return r.CheckoutID != nil && *r.CheckoutID == checkoutID }
	sort.Slice(matches, func(i, j int) bool {
		if heldBy(matches[i]) != heldBy(matches[j]) {
			return heldBy(matches[i])
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return &matches[0], nil
}

func (s *memStore) ReleaseCheckoutHolds(_ context.Context, checkoutID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.d.reservations {
		if r.CheckoutID != nil && *r.CheckoutID == checkoutID && r.Status == model.ReservationPending {
			r.Status = model.ReservationCancelled
			s.d.reservations[id] = r
			n++
		}
	}
	return n, nil
}

// holds returns the reservations a checkout placed, in any status.
func (s *memStore) holds(checkoutID string) []model.HotelReservation {
	var out []model.HotelReservation
	for _, r := range s.snapshot().reservations {
		if r.CheckoutID != nil && *r.CheckoutID == checkoutID {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) CreateReservation(_ context.Context, r *model.HotelReservation) (*model.HotelReservation, error) {
	if err := s.fail("CreateReservation"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *r
	out.ID = uuid.NewString()
	out.CreatedAt = time.Now()
	out.UpdatedAt = out.CreatedAt
	s.d.reservations[out.ID] = out
	return &out, nil
}

func (s *memStore) UpdateReservation(_ context.Context, r *model.HotelReservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.d.reservations[r.ID]; !ok {
		return notFound("reservation")
	}
	s.d.reservations[r.ID] = *r
	return nil
}

func (s *memStore) GetReservation(_ context.Context, id string) (*model.HotelReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.d.reservations[id]
	if !ok {
		return nil, notFound("reservation")
	}
	return &r, nil
}

func (s *memStore) ListReservations(_ context.Context, f model.ReservationFilter) ([]model.HotelReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.HotelReservation
	for _, r := range s.d.reservations {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.EventID != "" && r.EventID != f.EventID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (s *memStore) CancelReservation(_ context.Context, id string) (*model.HotelReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.d.reservations[id]
	if !ok {
		return nil, notFound("reservation")
	}
	if r.Status == model.ReservationCancelled {
		return nil, fmt.Errorf("%w: reservation already cancelled", repository.ErrConflict)
	}
	r.Status = model.ReservationCancelled
	s.d.reservations[id] = r
	return &r, nil
}

// ─── Attendance ───────────────────────────────────────────────────────────────

func (s *memStore) GetAttendance(_ context.Context, eventID, playerID string) (*model.EventAttendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.d.attendance {
		if a.EventID == eventID && a.PlayerID == playerID {
			return &a, nil
		}
	}
	return nil, notFound("attendance")
}

func (s *memStore) EnsureAttendance(ctx context.Context, eventID, playerID, userID string) (*model.EventAttendance, error) {
	if a, err := s.GetAttendance(ctx, eventID, playerID); err == nil {
		return a, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := model.EventAttendance{
		ID:       uuid.NewString(),
		EventID:  eventID,
		PlayerID: playerID,
		UserID:   userID,
		Status:   model.AttendancePending,
	}
	s.d.attendance[a.ID] = a
	return &a, nil
}

func (s *memStore) MarkAttendancePaid(_ context.Context, id, orderID, divisionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.d.attendance[id]
	if !ok {
		return notFound("attendance")
	}
	a.Status = model.AttendancePaid
	a.OrderID = &orderID
	if divisionID != "" {
		a.DivisionID = &divisionID
	}
	s.d.attendance[id] = a
	return nil
}

func (s *memStore) ListAttendanceByEvent(_ context.Context, eventID string) ([]model.EventAttendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EventAttendance
	for _, a := range s.d.attendance {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ─── Orders and checkouts ─────────────────────────────────────────────────────

func (s *memStore) CreateOrder(_ context.Context, o *model.Order) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.d.orders {
		if existing.CheckoutID == o.CheckoutID {
			return nil, repository.ErrConflict
		}
	}
	out := *o
	out.ID = uuid.NewString()
	out.CreatedAt = time.Now()
	s.d.orders[out.ID] = out
	return &out, nil
}

// withLinks fills the id lists the repository derives with subqueries.
func (s *memStore) withLinks(o model.Order) *model.Order {
	o.AttendanceIDs = []string{}
	o.ReservationIDs = []string{}
	for _, a := range s.d.attendance {
		if a.OrderID != nil && *a.OrderID == o.ID {
			o.AttendanceIDs = append(o.AttendanceIDs, a.ID)
		}
	}
	for _, r := range s.d.reservations {
		if r.OrderID != nil && *r.OrderID == o.ID {
			o.ReservationIDs = append(o.ReservationIDs, r.ID)
		}
	}
	return &o
}

func (s *memStore) GetOrder(_ context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.d.orders[id]
	if !ok {
		return nil, notFound("order")
	}
	return s.withLinks(o), nil
}

func (s *memStore) ListOrders(_ context.Context, userID string) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, o := range s.d.orders {
		if userID == "" || o.UserID == userID {
			out = append(out, *s.withLinks(o))
		}
	}
	return out, nil
}

func (s *memStore) CreateCheckout(_ context.Context, c *model.StripeEventCheckout) (*model.StripeEventCheckout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *c
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	out.CreatedAt = time.Now()
	s.d.checkouts[out.ID] = out
	return &out, nil
}

func (s *memStore) GetCheckout(_ context.Context, id string) (*model.StripeEventCheckout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.d.checkouts[id]
	if !ok {
		return nil, notFound("checkout")
	}
	return &c, nil
}

func (s *memStore) GetCheckoutBySession(_ context.Context, sessionID string) (*model.StripeEventCheckout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.d.checkouts {
		if c.StripeSessionID == sessionID {
			return &c, nil
		}
	}
	return nil, notFound("checkout")
}

func (s *memStore) LockCheckoutBySession(ctx context.Context, sessionID string) (*model.StripeEventCheckout, error) {
	return s.GetCheckoutBySession(ctx, sessionID)
}

func (s *memStore) MarkCheckoutPaid(_ context.Context, id, orderID string, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.d.checkouts[id]
	if !ok {
		return notFound("checkout")
	}
	c.Status = model.CheckoutPaid
	c.OrderID = &orderID
	c.PaidAt = &paidAt
	s.d.checkouts[id] = c
	return nil
}

func (s *memStore) MarkCheckoutStatus(_ context.Context, id string, status model.CheckoutStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.d.checkouts[id]
	if !ok || c.Status != model.CheckoutPending {
		return false, nil
	}
	c.Status = status
	s.d.checkouts[id] = c
	return true, nil
}

func (s *memStore) EnqueueOutbox(_ context.Context, eventType, partitionKey string, payload []byte) error {
	if err := s.fail("EnqueueOutbox"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.outbox = append(s.d.outbox, model.OutboxRecord{
		ID:           uuid.NewString(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      payload,
		CreatedAt:    time.Now(),
	})
	return nil
}

// ─── Inspection helpers ───────────────────────────────────────────────────────

func (s *memStore) snapshot() *memData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.clone()
}

func (s *memStore) outboxTypes() []string {
	var out []string
	for _, rec := range s.snapshot().outbox {
		out = append(out, rec.EventType)
	}
	return out
}

// ─── Payment gateway ──────────────────────────────────────────────────────────

const testWebhookSecret = "whsec_service_test"

// fakeGateway records sessions in memory and verifies webhooks with the real
// Stripe signature scheme.
type fakeGateway struct {
	mu        sync.Mutex
	sessions  map[string]*payments.Session
	created   []payments.SessionParams
	expired   []string
	createErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*payments.Session{}}
}

func (g *fakeGateway) CreateSession(_ context.Context, p payments.SessionParams) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	var total int64
	for _, li := range p.LineItems {
		total += li.UnitAmountCents * li.Quantity
	}
	sess := &payments.Session{
		ID:                "cs_test_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status:            payments.StatusOpen,
		PaymentStatus:     payments.PaymentUnpaid,
		ClientReferenceID: p.CheckoutID,
		AmountTotal:       total,
		Metadata:          p.Metadata,
	}
	sess.URL = "https://checkout.stripe.test/" + sess.ID
	g.sessions[sess.ID] = sess
	g.created = append(g.created, p)
	out := *sess
	return &out, nil
}

func (g *fakeGateway) GetSession(_ context.Context, id string) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[id]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	out := *sess
	return &out, nil
}

func (g *fakeGateway) ExpireSession(_ context.Context, id string) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[id]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	sess.Status = payments.StatusExpired
	g.expired = append(g.expired, id)
	out := *sess
	return &out, nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*payments.WebhookEvent, error) {
	return payments.ParseWebhook(payload, signature, testWebhookSecret)
}

// pay marks a session as paid the way Stripe would after a successful charge.
func (g *fakeGateway) pay(id string) *payments.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess := g.sessions[id]
	sess.Status = payments.StatusComplete
	sess.PaymentStatus = payments.PaymentPaid
	sess.PaymentIntentID = "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	out := *sess
	return &out
}

// ─── Locker, dedup, observer ──────────────────────────────────────────────────

type memDedup struct {
	mu        sync.Mutex
	seen      map[string]bool
	forgotten []string
}

func newMemDedup() *memDedup {
	return &memDedup{seen: map[string]bool{}}
}

func (d *memDedup) MarkNew(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *memDedup) Forget(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	d.forgotten = append(d.forgotten, id)
	return nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]bool{}}
}

func (l *memLocker) TryLock(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

type recordingObserver struct {
	mu         sync.Mutex
	started    int
	finalized  map[string]int
	mismatches int
	webhooks   map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{finalized: map[string]int{}, webhooks: map[string]int{}}
}

func (o *recordingObserver) CheckoutStarted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) CheckoutFinalized(result string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finalized[result]++
}

func (o *recordingObserver) AmountMismatch() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mismatches++
}

func (o *recordingObserver) WebhookReceived(eventType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.webhooks[eventType]++
}

// decodeOutbox unmarshals the payload of the i-th outbox record.
func decodeOutbox[T any](d *memData, i int) (T, error) {
	var v T
	if i >= len(d.outbox) {
		return v, fmt.Errorf("outbox has %d records", len(d.outbox))
	}
	err := json.Unmarshal(d.outbox[i].Payload, &v)
	return v, err
}
