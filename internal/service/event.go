package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Shivanand-hulikatti/nsc-international/internal/lib/logger/sl"
	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
	"github.com/Shivanand-hulikatti/nsc-international/internal/repository"
)

// EventStore is the persistence the event service needs.
type EventStore interface {
	CreateEventType(ctx context.Context, name string) (*model.EventType, error)
	ListEventTypes(ctx context.Context) ([]model.EventType, error)

	CreateDivision(ctx context.Context, d *model.Division) (*model.Division, error)
	SetDivisionActive(ctx context.Context, id string, active bool) (*model.Division, error)
	ListDivisions(ctx context.Context, activeOnly bool) ([]model.Division, error)
	GetDivisionsByIDs(ctx context.Context, ids []string) ([]model.Division, error)

	CreateContact(ctx context.Context, c *model.Contact) (*model.Contact, error)
	ListContacts(ctx context.Context) ([]model.Contact, error)
	GetContactsByIDs(ctx context.Context, ids []string) ([]model.Contact, error)

	GetHotelsByIDs(ctx context.Context, ids []string) ([]model.Hotel, error)

	CreateEvent(ctx context.Context, e *model.Event) (*model.Event, error)
	UpdateEvent(ctx context.Context, e *model.Event) (*model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	ListAttendanceByEvent(ctx context.Context, eventID string) ([]model.EventAttendance, error)
}

// EventCache holds read-through copies of events.
type EventCache interface {
	GetEvent(ctx context.Context, id string) (*model.Event, bool)
	SetEvent(ctx context.Context, e *model.Event)
	InvalidateEvent(ctx context.Context, id string)
}

type noEventCache struct{}

func (noEventCache) GetEvent(context.Context, string) (*model.Event, bool) { return nil, false }
func (noEventCache) SetEvent(context.Context, *model.Event)                {}
func (noEventCache) InvalidateEvent(context.Context, string)               {}

// slugAttempts bounds how many numeric suffixes are tried on a slug clash.
const slugAttempts = 5

// EventService manages events and their reference data.
type EventService struct {
	log   *slog.Logger
	store EventStore
	cache EventCache
}

// NewEventService constructs an EventService. cache may be nil.
func NewEventService(log *slog.Logger, store EventStore, cache EventCache) *EventService {
	if cache == nil {
		cache = noEventCache{}
	}
	return &EventService{log: log, store: store, cache: cache}
}

// ─── Reference data ───────────────────────────────────────────────────────────

// CreateEventType adds an event type.
func (s *EventService) CreateEventType(ctx context.Context, req model.EventTypeRequest) (*model.EventType, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return s.store.CreateEventType(ctx, req.Name)
}

// ListEventTypes returns every event type.
func (s *EventService) ListEventTypes(ctx context.Context) ([]model.EventType, error) {
	return s.store.ListEventTypes(ctx)
}

// CreateDivision adds an active division.
func (s *EventService) CreateDivision(ctx context.Context, req model.DivisionRequest) (*model.Division, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.AgeGroup = strings.TrimSpace(req.AgeGroup)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return s.store.CreateDivision(ctx, &model.Division{Name: req.Name, AgeGroup: req.AgeGroup, Active: true})
}

// SetDivisionActive switches a division on or off. Inactive divisions can no
// longer be attached to events.
func (s *EventService) SetDivisionActive(ctx context.Context, id string, active bool) (*model.Division, error) {
	return s.store.SetDivisionActive(ctx, id, active)
}

// ListDivisions returns divisions, optionally only the active ones.
func (s *EventService) ListDivisions(ctx context.Context, activeOnly bool) ([]model.Division, error) {
	return s.store.ListDivisions(ctx, activeOnly)
}

// CreateContact adds an active event contact.
func (s *EventService) CreateContact(ctx context.Context, req model.ContactRequest) (*model.Contact, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return s.store.CreateContact(ctx, &model.Contact{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  strings.TrimSpace(req.Phone),
		Active: true,
	})
}

// ListContacts returns every contact.
func (s *EventService) ListContacts(ctx context.Context) ([]model.Contact, error) {
	return s.store.ListContacts(ctx)
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent validates req and stores a new event.
func (s *EventService) CreateEvent(ctx context.Context, req model.EventRequest) (*model.Event, error) {
	const op = "service.Event.CreateEvent"

	e := &model.Event{}
	if err := s.applyEventRequest(ctx, e, req); err != nil {
		return nil, err
	}

	created, err := s.saveWithSlug(ctx, e, s.store.CreateEvent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, refErr(err))
	}

	s.log.Info("event created", slog.String("op", op), slog.String("event_id", created.ID), slog.String("slug", created.Slug))
	return created, nil
}

// UpdateEvent validates req and overwrites the event.
func (s *EventService) UpdateEvent(ctx context.Context, id string, req model.EventRequest) (*model.Event, error) {
	const op = "service.Event.UpdateEvent"

	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyEventRequest(ctx, e, req); err != nil {
		return nil, err
	}

	updated, err := s.saveWithSlug(ctx, e, s.store.UpdateEvent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, refErr(err))
	}
	s.cache.InvalidateEvent(ctx, id)
	return updated, nil
}

// saveWithSlug calls save, retrying with a numeric suffix while the slug clashes.
func (s *EventService) saveWithSlug(ctx context.Context, e *model.Event, save func(context.Context, *model.Event) (*model.Event, error)) (*model.Event, error) {
	base := e.Slug
	for attempt := 1; ; attempt++ {
		out, err := save(ctx, e)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, repository.ErrConflict) || attempt >= slugAttempts {
			return nil, err
		}
		e.Slug = base + "-" + strconv.Itoa(attempt+1)
	}
}

// applyEventRequest validates req and copies it onto e. Only active
// divisions, hotels, and contacts are accepted.
func (s *EventService) applyEventRequest(ctx context.Context, e *model.Event, req model.EventRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return err
	}

	start, err := mustParseDate("start_date", req.StartDate)
	if err != nil {
		return err
	}
	end, err := mustParseDate("end_date", req.EndDate)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return invalid("end_date must not be before start_date")
	}
	deadline, err := parseDate("registration_deadline", req.RegistrationDeadline)
	if err != nil {
		return err
	}
	if deadline != nil && deadline.After(end) {
		return invalid("registration_deadline must not be after end_date")
	}

	status := req.Status
	if status == "" {
		status = model.EventDraft
	}
	if !status.Valid() {
		return invalid("status must be one of draft, published, closed, cancelled")
	}

	divisionIDs := uniqueStrings(req.DivisionIDs)
	hotelIDs := uniqueStrings(req.HotelIDs)
	contactIDs := uniqueStrings(req.ContactIDs)
	if err := s.checkActiveRefs(ctx, divisionIDs, hotelIDs, contactIDs); err != nil {
		return err
	}

	slug := Slugify(req.Title, start)
	if e.ID == "" || !strings.HasPrefix(e.Slug, slug) {
		e.Slug = slug
	}

	e.Title = req.Title
	e.EventTypeID = nullableID(req.EventTypeID)
	e.SiteID = nullableID(req.SiteID)
	e.CityID = nullableID(req.CityID)
	e.StartDate = start
	e.EndDate = end
	e.RegistrationDeadline = deadline
	e.EntryFeeCents = req.EntryFeeCents
	e.Status = status
	e.Description = strings.TrimSpace(req.Description)
	e.DivisionIDs = divisionIDs
	e.HotelIDs = hotelIDs
	e.ContactIDs = contactIDs
	return nil
}

// checkActiveRefs rejects unknown or inactive divisions, hotels, and contacts.
func (s *EventService) checkActiveRefs(ctx context.Context, divisionIDs, hotelIDs, contactIDs []string) error {
	divisions, err := s.store.GetDivisionsByIDs(ctx, divisionIDs)
	if err != nil {
		return err
	}
	active := make(map[string]bool, len(divisions))
	for _, d := range divisions {
		active[d.ID] = d.Active
	}
	if err := requireActive("division", divisionIDs, active); err != nil {
		return err
	}

	hotels, err := s.store.GetHotelsByIDs(ctx, hotelIDs)
	if err != nil {
		return err
	}
	active = make(map[string]bool, len(hotels))
	for _, h := range hotels {
		active[h.ID] = h.Active
	}
	if err := requireActive("hotel", hotelIDs, active); err != nil {
		return err
	}

	contacts, err := s.store.GetContactsByIDs(ctx, contactIDs)
	if err != nil {
		return err
	}
	active = make(map[string]bool, len(contacts))
	for _, c := range contacts {
		active[c.ID] = c.Active
	}
	return requireActive("contact", contactIDs, active)
}

func requireActive(kind string, ids []string, active map[string]bool) error {
	for _, id := range ids {
		on, ok := active[id]
		if !ok {
			return invalid("%s %s does not exist", kind, id)
		}
		if !on {
			return fmt.Errorf("%w: %w: %s %s", ErrInvalidInput, ErrInactive, kind, id)
		}
	}
	return nil
}

func nullableID(id string) *string {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return &id
}

// GetEvent returns an event, reading through the cache.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if e, ok := s.cache.GetEvent(ctx, id); ok {
		return e, nil
	}
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetEvent(ctx, e)
	return e, nil
}

// ListEvents returns events matching f.
func (s *EventService) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("unknown status %q", f.Status)
	}
	return s.store.ListEvents(ctx, f)
}

// DeleteEvent removes an event that has no orders.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	const op = "service.Event.DeleteEvent"

	if err := s.store.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return fmt.Errorf("%w: event has orders or checkouts", repository.ErrConflict)
		}
		s.log.Error("failed to delete event", slog.String("op", op), sl.Err(err))
		return err
	}
	s.cache.InvalidateEvent(ctx, id)
	return nil
}

// ListAttendance returns the players registered into an event.
func (s *EventService) ListAttendance(ctx context.Context, eventID string) ([]model.EventAttendance, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListAttendanceByEvent(ctx, eventID)
}

// Slugify builds a URL slug from title and the start year, e.g.
// "Fall Classic Ñandú" + 2025 → "fall-classic-nandu-2025".
func Slugify(title string, start time.Time) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, title)
	if err != nil {
		plain = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		slug = "event"
	}
	return slug + "-" + strconv.Itoa(start.Year())
}
