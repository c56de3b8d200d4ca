package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/nsc-international/internal/lib/logger/sl"
	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
	"github.com/Shivanand-hulikatti/nsc-international/internal/payments"
	"github.com/Shivanand-hulikatti/nsc-international/internal/repository"
)

// CheckoutQueries is the part of the repository the checkout flow uses. Every
// method is available both standalone and inside WithinTx.
type CheckoutQueries interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetPlayer(ctx context.Context, id string) (*model.Player, error)
	GetAttendance(ctx context.Context, eventID, playerID string) (*model.EventAttendance, error)
	GetRoom(ctx context.Context, id string) (*model.HotelRoom, error)
	GetHotel(ctx context.Context, id string) (*model.Hotel, error)
	CountOverlappingReservations(ctx context.Context, roomID string, checkIn, checkOut time.Time, excludeID string) (int, error)

	CreateCheckout(ctx context.Context, c *model.StripeEventCheckout) (*model.StripeEventCheckout, error)
	GetCheckout(ctx context.Context, id string) (*model.StripeEventCheckout, error)
	GetCheckoutBySession(ctx context.Context, sessionID string) (*model.StripeEventCheckout, error)
	LockCheckoutBySession(ctx context.Context, sessionID string) (*model.StripeEventCheckout, error)
	MarkCheckoutPaid(ctx context.Context, id, orderID string, paidAt time.Time) error
	MarkCheckoutStatus(ctx context.Context, id string, status model.CheckoutStatus) (bool, error)

	CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	EnsureAttendance(ctx context.Context, eventID, playerID, userID string) (*model.EventAttendance, error)
	MarkAttendancePaid(ctx context.Context, id, orderID, divisionID string) error

	LockRoom(ctx context.Context, id string) (*model.HotelRoom, error)
	FindPendingReservation(ctx context.Context, checkoutID, userID, eventID, roomID string, checkIn, checkOut time.Time) (*model.HotelReservation, error)
	CreateReservation(ctx context.Context, r *model.HotelReservation) (*model.HotelReservation, error)
	UpdateReservation(ctx context.Context, r *model.HotelReservation) error
	ReleaseCheckoutHolds(ctx context.Context, checkoutID string) (int, error)

	EnqueueOutbox(ctx context.Context, eventType, partitionKey string, payload []byte) error
}

// CheckoutStore adds transactions to CheckoutQueries.
type CheckoutStore interface {
	CheckoutQueries
	WithinTx(ctx context.Context, fn func(q CheckoutQueries) error) error
}

type pgCheckoutStore struct {
	*repository.Store
}

// NewCheckoutStore adapts a repository.Store to CheckoutStore.
func NewCheckoutStore(s *repository.Store) CheckoutStore {
	return pgCheckoutStore{Store: s}
}

func (s pgCheckoutStore) WithinTx(ctx context.Context, fn func(q CheckoutQueries) error) error {
	return s.InTx(ctx, func(q *repository.Queries) error { return fn(q) })
}

// PaymentGateway is the Stripe surface the checkout flow needs.
type PaymentGateway interface {
	CreateSession(ctx context.Context, p payments.SessionParams) (*payments.Session, error)
	GetSession(ctx context.Context, id string) (*payments.Session, error)
	ExpireSession(ctx context.Context, id string) (*payments.Session, error)
	ParseWebhook(payload []byte, signature string) (*payments.WebhookEvent, error)
}

// Locker serialises work across processes.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}

// Dedup remembers processed webhook ids.
type Dedup interface {
	MarkNew(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// CheckoutObserver receives checkout metrics.
type CheckoutObserver interface {
	CheckoutStarted()
	CheckoutFinalized(result string, d time.Duration)
	AmountMismatch()
	WebhookReceived(eventType string)
}

type noLocker struct{}

func (noLocker) TryLock(context.Context, string) (func(), bool, error) { return func() {}, true, nil }

type noDedup struct{}

func (noDedup) MarkNew(context.Context, string) (bool, error) { return true, nil }
func (noDedup) Forget(context.Context, string) error          { return nil }

type noObserver struct{}

func (noObserver) CheckoutStarted()                        {}
func (noObserver) CheckoutFinalized(string, time.Duration) {}
func (noObserver) AmountMismatch()                         {}
func (noObserver) WebhookReceived(string)                  {}

// Finalization results reported to the observer.
const (
	resultCreated     = "created"
	resultExisting    = "existing"
	resultUnavailable = "unavailable"
	resultClosed      = "closed"
	resultError       = "error"
)

const (
	lockRetries = 10
	lockBackoff = 200 * time.Millisecond
)

// CheckoutConfig holds checkout pricing.
type CheckoutConfig struct {
	ServiceFeeBasisPoints int
}

// CheckoutDeps bundles the optional collaborators of CheckoutService. Nil
// fields fall back to no-ops.
type CheckoutDeps struct {
	Locker   Locker
	Dedup    Dedup
	Observer CheckoutObserver
}

// CheckoutService turns carts into Stripe sessions and paid sessions into
// orders, attendance, and hotel reservations.
type CheckoutService struct {
	log      *slog.Logger
	store    CheckoutStore
	gateway  PaymentGateway
	locker   Locker
	dedup    Dedup
	observer CheckoutObserver
	cfg      CheckoutConfig
	now      func() time.Time
}

// NewCheckoutService constructs a CheckoutService.
func NewCheckoutService(log *slog.Logger, store CheckoutStore, gateway PaymentGateway, cfg CheckoutConfig, deps CheckoutDeps) *CheckoutService {
	s := &CheckoutService{
		log:      log,
		store:    store,
		gateway:  gateway,
		locker:   deps.Locker,
		dedup:    deps.Dedup,
		observer: deps.Observer,
		cfg:      cfg,
		now:      time.Now,
	}
	if s.locker == nil {
		s.locker = noLocker{}
	}
	if s.dedup == nil {
		s.dedup = noDedup{}
	}
	if s.observer == nil {
		s.observer = noObserver{}
	}
	return s
}

// ─── Start ────────────────────────────────────────────────────────────────────

// StartCheckout validates the cart, prices it, opens a Stripe session, and
// stores a pending checkout snapshot. Every cart room is held as a pending
// reservation until the checkout is finalized or closed.
func (s *CheckoutService) StartCheckout(ctx context.Context, p model.Principal, req model.CheckoutRequest) (*model.CheckoutSession, error) {
	const op = "service.Checkout.StartCheckout"
	log := s.log.With(slog.String("op", op), slog.String("user_id", p.UserID), slog.String("event_id", req.EventID))

	if p.UserID == "" {
		return nil, ErrUnauthorized
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if len(req.PlayerIDs) == 0 && len(req.Rooms) == 0 {
		return nil, invalid("cart is empty")
	}

	event, err := s.store.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.RegistrationOpen(s.now()) {
		return nil, fmt.Errorf("%w: registration for this event is closed", ErrInvalidInput)
	}

	user, err := s.store.GetUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	players, err := s.checkPlayers(ctx, p.UserID, event.ID, req.PlayerIDs)
	if err != nil {
		return nil, err
	}
	divisions, err := assignDivisions(event, players, req.Divisions)
	if err != nil {
		return nil, err
	}

	priced, err := s.priceRooms(ctx, event, req.Rooms)
	if err != nil {
		return nil, err
	}
	if err := s.checkAvailability(ctx, priced); err != nil {
		return nil, err
	}

	breakdown := model.ComputeBreakdown(event.EntryFeeCents, len(players), priced, s.cfg.ServiceFeeBasisPoints)
	if breakdown.TotalCents <= 0 {
		return nil, invalid("cart total must be positive")
	}

	cart := model.CartSnapshot{
		PlayerIDs: make([]string, 0, len(players)),
		Rooms:     make([]model.CartRoom, 0, len(priced)),
		Divisions: divisions,
	}
	for _, pl := range players {
		cart.PlayerIDs = append(cart.PlayerIDs, pl.ID)
	}
	for _, pr := range priced {
		cart.Rooms = append(cart.Rooms, pr.Entry)
	}

	checkoutID := uuid.New().String()
	sess, err := s.gateway.CreateSession(ctx, payments.SessionParams{
		CheckoutID:    checkoutID,
		CustomerEmail: user.Email,
		LineItems:     LineItems(event, players, breakdown),
		Metadata: map[string]string{
			"checkout_id": checkoutID,
			"event_id":    event.ID,
			"user_id":     user.ID,
		},
	})
	if err != nil {
		log.Error("failed to create stripe session", sl.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	checkout, err := s.openCheckout(ctx, &model.StripeEventCheckout{
		ID:              checkoutID,
		UserID:          user.ID,
		EventID:         event.ID,
		StripeSessionID: sess.ID,
		Cart:            cart,
		Breakdown:       breakdown,
		Status:          model.CheckoutPending,
	})
	if err != nil {
		// Nothing was stored, so the session must not stay payable.
		if _, xerr := s.gateway.ExpireSession(ctx, sess.ID); xerr != nil {
			log.Warn("failed to expire abandoned stripe session", slog.String("session_id", sess.ID), sl.Err(xerr))
		}
		if errors.Is(err, ErrRoomUnavailable) {
			log.Info("room taken before it could be held", sl.Err(err))
			return nil, err
		}
		log.Error("failed to persist checkout", slog.String("session_id", sess.ID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.observer.CheckoutStarted()
	log.Info("checkout started",
		slog.String("checkout_id", checkout.ID),
		slog.String("session_id", sess.ID),
		slog.Int64("total_cents", breakdown.TotalCents),
	)
	return &model.CheckoutSession{
		CheckoutID: checkout.ID,
		SessionID:  sess.ID,
		URL:        sess.URL,
		Breakdown:  breakdown,
	}, nil
}

// checkPlayers verifies every player belongs to userID, is active, and is not
// already paid for the event.
func (s *CheckoutService) checkPlayers(ctx context.Context, userID, eventID string, ids []string) ([]model.Player, error) {
	ids = uniqueStrings(ids)
	players := make([]model.Player, 0, len(ids))
	for _, id := range ids {
		pl, err := s.store.GetPlayer(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalid("player %s does not exist", id)
			}
			return nil, err
		}
		if pl.ParentID != userID {
			return nil, fmt.Errorf("%w: player %s is not yours", ErrForbidden, id)
		}
		if !pl.Active {
			return nil, fmt.Errorf("%w: %w: player %s", ErrInvalidInput, ErrInactive, pl.FullName())
		}

		att, err := s.store.GetAttendance(ctx, eventID, id)
		switch {
		case err == nil && att.Status == model.AttendancePaid:
			return nil, fmt.Errorf("%w: %s is already registered for this event", repository.ErrConflict, pl.FullName())
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
		players = append(players, *pl)
	}
	return players, nil
}

// assignDivisions resolves the division of every player in the cart. A player
// left out takes the event's only division; when the event has several, one
// must be chosen.
func assignDivisions(event *model.Event, players []model.Player, requested map[string]string) (map[string]string, error) {
	inCart := make(map[string]bool, len(players))
	for _, pl := range players {
		inCart[pl.ID] = true
	}
	for playerID := range requested {
		if !inCart[playerID] {
			return nil, invalid("divisions: player %s is not in the cart", playerID)
		}
	}

	out := make(map[string]string, len(players))
	for _, pl := range players {
		divisionID, ok := requested[pl.ID]
		switch {
		case ok && !event.HasDivision(divisionID):
			return nil, invalid("divisions: division %s is not offered for this event", divisionID)
		case ok:
			out[pl.ID] = divisionID
		case len(event.DivisionIDs) == 1:
			out[pl.ID] = event.DivisionIDs[0]
		case len(event.DivisionIDs) > 1:
			return nil, invalid("divisions: choose a division for %s", pl.FullName())
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// priceRooms resolves every cart room against the catalogue and checks it
// can be sold for this event.
func (s *CheckoutService) priceRooms(ctx context.Context, event *model.Event, entries []model.CartRoomRequest) ([]model.PricedRoom, error) {
	out := make([]model.PricedRoom, 0, len(entries))
	for i, e := range entries {
		field := fmt.Sprintf("rooms[%d]", i)
		in, err := mustParseDate(field+".check_in", e.CheckIn)
		if err != nil {
			return nil, err
		}
		outDate, err := mustParseDate(field+".check_out", e.CheckOut)
		if err != nil {
			return nil, err
		}
		if !outDate.After(in) {
			return nil, invalid("%s: check_out must be after check_in", field)
		}

		room, err := s.store.GetRoom(ctx, e.RoomID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalid("%s: room %s does not exist", field, e.RoomID)
			}
			return nil, err
		}
		hotel, err := s.store.GetHotel(ctx, room.HotelID)
		if err != nil {
			return nil, err
		}
		if !room.Active || !hotel.Active {
			return nil, fmt.Errorf("%w: %w: %s %s", ErrInvalidInput, ErrInactive, hotel.Name, room.RoomType)
		}
		if !event.HasHotel(hotel.ID) {
			return nil, invalid("%s: %s is not offered for this event", field, hotel.Name)
		}
		if e.Guests < 1 || e.Guests > room.Capacity {
			return nil, invalid("%s: guests must be between 1 and %d", field, room.Capacity)
		}
		if len(e.GuestDetails) > e.Guests {
			return nil, invalid("%s: %d guest details for %d guests", field, len(e.GuestDetails), e.Guests)
		}

		out = append(out, model.PricedRoom{
			Entry: model.CartRoom{
				RoomID:       room.ID,
				HotelID:      hotel.ID,
				CheckIn:      in,
				CheckOut:     outDate,
				Guests:       e.Guests,
				GuestDetails: e.GuestDetails,
			},
			Room:  room,
			Hotel: hotel,
		})
	}
	return out, nil
}

// checkAvailability rejects sold-out carts before a Stripe session is opened.
// Entries for the same room in one cart count against each other. The
// binding check happens when the rooms are held.
func (s *CheckoutService) checkAvailability(ctx context.Context, rooms []model.PricedRoom) error {
	for i, pr := range rooms {
		booked, err := s.store.CountOverlappingReservations(ctx, pr.Room.ID, pr.Entry.CheckIn, pr.Entry.CheckOut, "")
		if err != nil {
			return err
		}
		for _, earlier := range rooms[:i] {
			if earlier.Room.ID == pr.Room.ID &&
				model.Overlaps(earlier.Entry.CheckIn, earlier.Entry.CheckOut, pr.Entry.CheckIn, pr.Entry.CheckOut) {
				booked++
			}
		}
		if booked >= pr.Room.Stock {
			return fmt.Errorf("%w: %s %s", ErrRoomUnavailable, pr.Hotel.Name, pr.Room.RoomType)
		}
	}
	return nil
}

// openCheckout stores the checkout and holds every cart room as a pending
// reservation, all in one transaction.
func (s *CheckoutService) openCheckout(ctx context.Context, c *model.StripeEventCheckout) (*model.StripeEventCheckout, error) {
	var out *model.StripeEventCheckout
	err := s.store.WithinTx(ctx, func(q CheckoutQueries) error {
		created, err := q.CreateCheckout(ctx, c)
		if err != nil {
			return err
		}
		for i, entry := range created.Cart.Rooms {
			room, err := lockStock(ctx, q, entry, "")
			if err != nil {
				return err
			}
			hold := newReservation(created, room, entry, roomLine(created.Breakdown, i))
			if _, err := q.CreateReservation(ctx, hold); err != nil {
				return err
			}
		}
		out = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ─── Finalize ─────────────────────────────────────────────────────────────────

// Finalize converts a paid Stripe session into an order in one transaction.
// It is idempotent: a session that is already paid returns its order.
// amountTotal is what Stripe charged; a mismatch is logged and recorded but
// does not block the order.
func (s *CheckoutService) Finalize(ctx context.Context, sessionID, paymentIntentID string, amountTotal int64) (*model.Order, error) {
	const op = "service.Checkout.Finalize"
	log := s.log.With(slog.String("op", op), slog.String("session_id", sessionID))
	start := s.now()

	release := s.acquire(ctx, log, "checkout:finalize:"+sessionID)
	defer release()

	var (
		orderID string
		result  = resultCreated
	)
	err := s.store.WithinTx(ctx, func(q CheckoutQueries) error {
		checkout, err := q.LockCheckoutBySession(ctx, sessionID)
		if err != nil {
			return err
		}

		switch checkout.Status {
		case model.CheckoutPaid:
			if checkout.OrderID == nil {
				return fmt.Errorf("checkout %s is paid without an order", checkout.ID)
			}
			orderID = *checkout.OrderID
			result = resultExisting
			return nil
		case model.CheckoutExpired, model.CheckoutCancelled:
			result = resultClosed
			return fmt.Errorf("%w: checkout is %s", ErrCheckoutClosed, checkout.Status)
		}

		order, err := s.finalizeLocked(ctx, log, q, checkout, paymentIntentID, amountTotal)
		if err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRoomUnavailable) {
			result = resultUnavailable
		} else if result == resultCreated {
			result = resultError
		}
		s.observer.CheckoutFinalized(result, s.now().Sub(start))
		if result == resultError {
			log.Error("finalization failed", sl.Err(err))
		} else {
			log.Warn("finalization rejected", slog.String("result", result), sl.Err(err))
		}
		return nil, err
	}

	s.observer.CheckoutFinalized(result, s.now().Sub(start))

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: reload order: %w", op, err)
	}
	if result == resultCreated {
		log.Info("checkout finalized",
			slog.String("order_id", order.ID),
			slog.Int("attendance", len(order.AttendanceIDs)),
			slog.Int("reservations", len(order.ReservationIDs)),
		)
	}
	return order, nil
}

// finalizeLocked does the writes of Finalize. The checkout row is locked by
// the caller's transaction.
func (s *CheckoutService) finalizeLocked(
	ctx context.Context,
	log *slog.Logger,
	q CheckoutQueries,
	checkout *model.StripeEventCheckout,
	paymentIntentID string,
	amountTotal int64,
) (*model.Order, error) {
	order, err := q.CreateOrder(ctx, &model.Order{
		UserID:          checkout.UserID,
		EventID:         checkout.EventID,
		CheckoutID:      checkout.ID,
		StripeSessionID: checkout.StripeSessionID,
		PaymentIntentID: paymentIntentID,
		AmountCents:     checkout.Breakdown.TotalCents,
		ChargedCents:    amountTotal,
		Breakdown:       checkout.Breakdown,
		Status:          model.OrderPaid,
	})
	if err != nil {
		return nil, err
	}
	if order.AmountMismatch() {
		s.observer.AmountMismatch()
		log.Warn("stripe amount differs from computed total",
			slog.String("order_id", order.ID),
			slog.Int64("computed_cents", order.AmountCents),
			slog.Int64("charged_cents", order.ChargedCents),
		)
	}

	for _, playerID := range checkout.Cart.PlayerIDs {
		att, err := q.EnsureAttendance(ctx, checkout.EventID, playerID, checkout.UserID)
		if err != nil {
			return nil, err
		}
		if att.Status == model.AttendancePaid && att.OrderID != nil && *att.OrderID != order.ID {
			// Paid twice for the same player: keep the first order's link.
			log.Warn("player already paid for event",
				slog.String("player_id", playerID),
				slog.String("existing_order_id", *att.OrderID),
			)
			continue
		}
		if err := q.MarkAttendancePaid(ctx, att.ID, order.ID, checkout.Cart.Divisions[playerID]); err != nil {
			return nil, err
		}
	}

	reservationIDs := make([]string, 0, len(checkout.Cart.Rooms))
	for i, entry := range checkout.Cart.Rooms {
		id, err := s.reserveRoom(ctx, q, checkout, order.ID, entry, roomLine(checkout.Breakdown, i))
		if err != nil {
			return nil, err
		}
		reservationIDs = append(reservationIDs, id)
	}

	now := s.now().UTC()
	if err := q.MarkCheckoutPaid(ctx, checkout.ID, order.ID, now); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(model.OrderCreatedPayload{
		OrderID:        order.ID,
		UserID:         order.UserID,
		EventID:        order.EventID,
		AmountCents:    order.AmountCents,
		PlayerCount:    len(checkout.Cart.PlayerIDs),
		ReservationIDs: reservationIDs,
		OccurredAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("encode order.created: %w", err)
	}
	if err := q.EnqueueOutbox(ctx, model.EventOrderCreated, order.UserID, payload); err != nil {
		return nil, err
	}
	return order, nil
}

// reserveRoom confirms one cart room under the room row lock. It converts the
// checkout's hold, or another matching pending reservation of the user, when
// there is one.
func (s *CheckoutService) reserveRoom(
	ctx context.Context,
	q CheckoutQueries,
	checkout *model.StripeEventCheckout,
	orderID string,
	entry model.CartRoom,
	line model.RoomLine,
) (string, error) {
	pending, err := q.FindPendingReservation(ctx, checkout.ID, checkout.UserID, checkout.EventID, entry.RoomID, entry.CheckIn, entry.CheckOut)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}
	excludeID := ""
	if pending != nil {
		excludeID = pending.ID
	}

	room, err := lockStock(ctx, q, entry, excludeID)
	if err != nil {
		return "", err
	}

	r := newReservation(checkout, room, entry, line)
	r.OrderID = ptr(orderID)
	r.Status = model.ReservationConfirmed

	if pending != nil {
		pending.OrderID = r.OrderID
		pending.Guests = r.Guests
		pending.GuestDetails = r.GuestDetails
		pending.AdditionalGuests = r.AdditionalGuests
		pending.Status = r.Status
		pending.TotalCents = r.TotalCents
		if err := q.UpdateReservation(ctx, pending); err != nil {
			return "", err
		}
		return pending.ID, nil
	}

	created, err := q.CreateReservation(ctx, r)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// lockStock locks the room row and fails with ErrRoomUnavailable when no
// stock is left for the entry's dates. excludeID is left out of the count.
func lockStock(ctx context.Context, q CheckoutQueries, entry model.CartRoom, excludeID string) (*model.HotelRoom, error) {
	room, err := q.LockRoom(ctx, entry.RoomID)
	if err != nil {
		return nil, err
	}
	booked, err := q.CountOverlappingReservations(ctx, room.ID, entry.CheckIn, entry.CheckOut, excludeID)
	if err != nil {
		return nil, err
	}
	if booked >= room.Stock {
		return nil, fmt.Errorf("%w: room %s (%s to %s)", ErrRoomUnavailable, room.RoomType,
			entry.CheckIn.Format(model.DateLayout), entry.CheckOut.Format(model.DateLayout))
	}
	return room, nil
}

// newReservation builds a pending reservation of entry held by checkout.
// Its total is the room line subtotal plus tax.
func newReservation(checkout *model.StripeEventCheckout, room *model.HotelRoom, entry model.CartRoom, line model.RoomLine) *model.HotelReservation {
	additional := entry.Guests - len(entry.GuestDetails)
	if additional < 0 {
		additional = 0
	}
	return &model.HotelReservation{
		UserID:           checkout.UserID,
		EventID:          checkout.EventID,
		HotelID:          room.HotelID,
		RoomID:           room.ID,
		CheckoutID:       ptr(checkout.ID),
		CheckIn:          entry.CheckIn,
		CheckOut:         entry.CheckOut,
		Guests:           entry.Guests,
		GuestDetails:     entry.GuestDetails,
		AdditionalGuests: additional,
		Status:           model.ReservationPending,
		TotalCents:       line.SubtotalCents + line.TaxCents,
	}
}

func roomLine(b model.Breakdown, i int) model.RoomLine {
	if i < len(b.Rooms) {
		return b.Rooms[i]
	}
	return model.RoomLine{}
}

// acquire takes the advisory Redis lock for key, waiting briefly when it is
// held. The database row lock stays authoritative, so failing to get the
// Redis lock only costs the wait.
func (s *CheckoutService) acquire(ctx context.Context, log *slog.Logger, key string) func() {
	for attempt := 0; attempt < lockRetries; attempt++ {
		release, ok, err := s.locker.TryLock(ctx, key)
		if err != nil {
			log.Warn("lock unavailable; relying on row lock", sl.Err(err))
			return func() {}
		}
		if ok {
			return release
		}

		select {
		case <-ctx.Done():
			return func() {}
		case <-time.After(lockBackoff):
		}
	}
	log.Warn("lock still held; relying on row lock", slog.String("key", key))
	return func() {}
}

// ─── Redirect, webhook, expiry ────────────────────────────────────────────────

// ConfirmFromRedirect handles the browser returning from Stripe. It asks
// Stripe for the session state and finalizes when paid.
func (s *CheckoutService) ConfirmFromRedirect(ctx context.Context, p model.Principal, sessionID string) (*model.Order, error) {
	const op = "service.Checkout.ConfirmFromRedirect"

	if sessionID == "" {
		return nil, invalid("session_id is required")
	}
	checkout, err := s.store.GetCheckoutBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(checkout.UserID) {
		return nil, ErrForbidden
	}
	if checkout.Status == model.CheckoutPaid && checkout.OrderID != nil {
		return s.store.GetOrder(ctx, *checkout.OrderID)
	}

	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		s.log.Error("failed to retrieve stripe session", slog.String("op", op), slog.String("session_id", sessionID), sl.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	if !sess.Paid() {
		return nil, fmt.Errorf("%w: payment status is %s", ErrPaymentIncomplete, sess.PaymentStatus)
	}
	return s.Finalize(ctx, sessionID, sess.PaymentIntentID, sess.AmountTotal)
}

// HandleWebhook verifies and processes one Stripe delivery. Redelivered
// events are acknowledged without reprocessing.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	const op = "service.Checkout.HandleWebhook"
	log := s.log.With(slog.String("op", op))

	evt, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		log.Warn("rejected webhook", sl.Err(err))
		if errors.Is(err, payments.ErrInvalidSignature) {
			return fmt.Errorf("%w: %v", ErrWebhookSignature, err)
		}
		return fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	log = log.With(slog.String("stripe_event_id", evt.ID), slog.String("type", evt.Type))
	s.observer.WebhookReceived(evt.Type)

	first, err := s.dedup.MarkNew(ctx, evt.ID)
	if err != nil {
		log.Warn("webhook dedup unavailable", sl.Err(err))
		first = true
	}
	if !first {
		log.Info("duplicate webhook ignored")
		return nil
	}

	if err := s.dispatch(ctx, log, evt); err != nil {
		// Let Stripe's retry reach us again.
		if ferr := s.dedup.Forget(ctx, evt.ID); ferr != nil {
			log.Warn("failed to forget webhook id", sl.Err(ferr))
		}
		return err
	}
	return nil
}

func (s *CheckoutService) dispatch(ctx context.Context, log *slog.Logger, evt *payments.WebhookEvent) error {
	switch evt.Type {
	case payments.EventSessionCompleted, payments.EventSessionAsyncSucceeded:
		if evt.Session == nil {
			return fmt.Errorf("%w: %s carries no session", ErrMalformedWebhook, evt.ID)
		}
		if !evt.Session.Paid() {
			log.Info("session completed without payment yet", slog.String("session_id", evt.Session.ID))
			return nil
		}
		_, err := s.Finalize(ctx, evt.Session.ID, evt.Session.PaymentIntentID, evt.Session.AmountTotal)
		if errors.Is(err, repository.ErrNotFound) {
			// Not one of ours (e.g. another integration on the same account).
			log.Warn("webhook for unknown session", slog.String("session_id", evt.Session.ID))
			return nil
		}
		return err

	case payments.EventSessionExpired, payments.EventSessionAsyncFailed:
		if evt.Session == nil {
			return fmt.Errorf("%w: %s carries no session", ErrMalformedWebhook, evt.ID)
		}
		status := model.CheckoutExpired
		if evt.Type == payments.EventSessionAsyncFailed {
			status = model.CheckoutCancelled
		}
		err := s.closeCheckout(ctx, log, evt.Session.ID, status)
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("webhook for unknown session", slog.String("session_id", evt.Session.ID))
			return nil
		}
		return err
	}

	log.Debug("webhook type ignored")
	return nil
}

// Expire closes a pending checkout: the Stripe session is expired when still
// open, then the checkout is marked expired. Paid sessions are refused.
func (s *CheckoutService) Expire(ctx context.Context, sessionID string) error {
	const op = "service.Checkout.Expire"
	log := s.log.With(slog.String("op", op), slog.String("session_id", sessionID))

	if _, err := s.store.GetCheckoutBySession(ctx, sessionID); err != nil {
		return err
	}

	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	if sess.Paid() {
		return fmt.Errorf("%w: session is paid; finalize it instead", ErrCheckoutClosed)
	}
	if sess.Status == payments.StatusOpen {
		if _, err := s.gateway.ExpireSession(ctx, sessionID); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentProvider, err)
		}
	}
	return s.closeCheckout(ctx, log, sessionID, model.CheckoutExpired)
}

// closeCheckout moves a pending checkout to status, releases its room holds,
// and emits checkout.expired. Checkouts that are no longer pending are left
// alone.
func (s *CheckoutService) closeCheckout(ctx context.Context, log *slog.Logger, sessionID string, status model.CheckoutStatus) error {
	return s.store.WithinTx(ctx, func(q CheckoutQueries) error {
		checkout, err := q.LockCheckoutBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		changed, err := q.MarkCheckoutStatus(ctx, checkout.ID, status)
		if err != nil {
			return err
		}
		if !changed {
			log.Info("checkout not pending; left as is", slog.String("status", string(checkout.Status)))
			return nil
		}
		released, err := q.ReleaseCheckoutHolds(ctx, checkout.ID)
		if err != nil {
			return err
		}

		payload, err := json.Marshal(model.CheckoutExpiredPayload{
			CheckoutID: checkout.ID,
			SessionID:  sessionID,
			UserID:     checkout.UserID,
			EventID:    checkout.EventID,
			OccurredAt: s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("encode checkout.expired: %w", err)
		}
		if err := q.EnqueueOutbox(ctx, model.EventCheckoutExpired, checkout.UserID, payload); err != nil {
			return err
		}
		log.Info("checkout closed",
			slog.String("checkout_id", checkout.ID),
			slog.String("status", string(status)),
			slog.Int("holds_released", released),
		)
		return nil
	})
}

// GetCheckout returns a checkout its owner or staff may read.
func (s *CheckoutService) GetCheckout(ctx context.Context, p model.Principal, id string) (*model.StripeEventCheckout, error) {
	checkout, err := s.store.GetCheckout(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(checkout.UserID) {
		return nil, ErrForbidden
	}
	return checkout, nil
}
