package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

// Locations is the location service as seen by HTTP.
type Locations interface {
	EnsureCountry(ctx context.Context, req model.CountryRequest) (*model.Country, bool, error)
	EnsureState(ctx context.Context, req model.StateRequest) (*model.State, bool, error)
	EnsureCity(ctx context.Context, req model.CityRequest) (*model.City, bool, error)
	CreateSite(ctx context.Context, req model.SiteRequest) (*model.Site, error)
	ListCountries(ctx context.Context) ([]model.Country, error)
	ListStates(ctx context.Context, countryID string) ([]model.State, error)
	ListCities(ctx context.Context, stateID string) ([]model.City, error)
	ListSites(ctx context.Context, cityID string) ([]model.Site, error)
}

// LocationHandler serves the country → state → city → site tree.
type LocationHandler struct {
	log *slog.Logger
	svc Locations
}

// NewLocationHandler constructs a LocationHandler.
func NewLocationHandler(log *slog.Logger, svc Locations) *LocationHandler {
	return &LocationHandler{log: log, svc: svc}
}

// ensured answers 201 for a new row and 200 for an existing one.
func ensured(w http.ResponseWriter, created bool, v any) {
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, v)
}

// EnsureCountry handles POST /countries
func (h *LocationHandler) EnsureCountry(w http.ResponseWriter, r *http.Request) {
	var req model.CountryRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	c, created, err := h.svc.EnsureCountry(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	ensured(w, created, c)
}

// EnsureState handles POST /states
func (h *LocationHandler) EnsureState(w http.ResponseWriter, r *http.Request) {
	var req model.StateRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	s, created, err := h.svc.EnsureState(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	ensured(w, created, s)
}

// EnsureCity handles POST /cities
func (h *LocationHandler) EnsureCity(w http.ResponseWriter, r *http.Request) {
	var req model.CityRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	c, created, err := h.svc.EnsureCity(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	ensured(w, created, c)
}

// CreateSite handles POST /sites
func (h *LocationHandler) CreateSite(w http.ResponseWriter, r *http.Request) {
	var req model.SiteRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	s, err := h.svc.CreateSite(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// ListCountries handles GET /countries
func (h *LocationHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListCountries(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// ListStates handles GET /countries/{id}/states
func (h *LocationHandler) ListStates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	list, err := h.svc.ListStates(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// ListCities handles GET /states/{id}/cities
func (h *LocationHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	list, err := h.svc.ListCities(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}

// ListSites handles GET /cities/{id}/sites
func (h *LocationHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	list, err := h.svc.ListSites(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}
