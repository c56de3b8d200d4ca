package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
	"github.com/Shivanand-hulikatti/nsc-international/internal/repository"
)

// Events is the event catalogue service as seen by HTTP.
type Events interface {
	CreateEventType(ctx context.Context, req model.EventTypeRequest) (*model.EventType, error)
	ListEventTypes(ctx context.Context) ([]model.EventType, error)
	CreateDivision(ctx context.Context, req model.DivisionRequest) (*model.Division, error)
	SetDivisionActive(ctx context.Context, id string, active bool) (*model.Division, error)
	ListDivisions(ctx context.Context, activeOnly bool) ([]model.Division, error)
	CreateContact(ctx context.Context, req model.ContactRequest) (*model.Contact, error)
	ListContacts(ctx context.Context) ([]model.Contact, error)
	CreateEvent(ctx context.Context, req model.EventRequest) (*model.Event, error)
	UpdateEvent(ctx context.Context, id string, req model.EventRequest) (*model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListAttendance(ctx context.Context, eventID string) ([]model.EventAttendance, error)
}

// EventHandler holds the HTTP handlers for events and their lookups.
type EventHandler struct {
	log *slog.Logger
	svc Events
	now func() time.Time
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(log *slog.Logger, svc Events) *EventHandler {
	return &EventHandler{log: log, svc: svc, now: time.Now}
}

// isStaff reports whether the request carries a staff principal.
func isStaff(r *http.Request) bool {
	p, ok := PrincipalFrom(r.Context())
	return ok && p.IsStaff
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.EventRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PUT /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.EventRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), id, req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ListEvents handles GET /events
// Query: status, type, upcoming=true. Anonymous and non-staff callers only
// ever see published events.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.EventFilter{
		Status:      model.EventStatus(q.Get("status")),
		EventTypeID: q.Get("type"),
	}
	if !isStaff(r) {
		f.Status = model.EventPublished
	}
	if boolQuery(r, "upcoming", false) {
		now := h.now()
		f.UpcomingAt = &now
	}

	events, err := h.svc.ListEvents(r.Context(), f)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(events))
}

// GetEvent handles GET /events/{id}
// Draft events are hidden from non-staff callers.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if event.Status == model.EventDraft && !isStaff(r) {
		respondError(w, r, h.log, repository.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteEvent(r.Context(), id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAttendance handles GET /events/{id}/attendance
func (h *EventHandler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	list, err := h.svc.ListAttendance(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// ─── Lookups ──────────────────────────────────────────────────────────────────

// CreateEventType handles POST /event-types
func (h *EventHandler) CreateEventType(w http.ResponseWriter, r *http.Request) {
	var req model.EventTypeRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	et, err := h.svc.CreateEventType(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, et)
}

// ListEventTypes handles GET /event-types
func (h *EventHandler) ListEventTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.ListEventTypes(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(types))
}

// CreateDivision handles POST /divisions
func (h *EventHandler) CreateDivision(w http.ResponseWriter, r *http.Request) {
	var req model.DivisionRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	d, err := h.svc.CreateDivision(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// SetDivisionActive handles PATCH /divisions/{id}
func (h *EventHandler) SetDivisionActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.DivisionStatusRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	d, err := h.svc.SetDivisionActive(r.Context(), id, req.Active)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListDivisions handles GET /divisions
// Staff may pass active=false to include switched-off divisions.
func (h *EventHandler) ListDivisions(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if isStaff(r) {
		activeOnly = boolQuery(r, "active", true)
	}

	divisions, err := h.svc.ListDivisions(r.Context(), activeOnly)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(divisions))
}

// CreateContact handles POST /contacts
func (h *EventHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req model.ContactRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	c, err := h.svc.CreateContact(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListContacts handles GET /contacts
func (h *EventHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.svc.ListContacts(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(contacts))
}
