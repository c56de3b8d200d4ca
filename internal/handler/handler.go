// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/nsc-international/internal/lib/logger/sl"
	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
	"github.com/Shivanand-hulikatti/nsc-international/internal/repository"
	"github.com/Shivanand-hulikatti/nsc-international/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeOrReject decodes the body into dst and answers 400 on failure.
func decodeOrReject(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// pathID reads the {id} URL parameter. Every resource is keyed by UUID, so
// anything else names no row and is answered with 404.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, repository.ErrNotFound.Error())
		return "", false
	}
	return id, true
}

// emptyIfNil keeps list endpoints returning [] instead of null.
func emptyIfNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

// boolQuery reads a true/false query parameter, falling back to def.
func boolQuery(r *http.Request, key string, def bool) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

// ─── Error mapping ────────────────────────────────────────────────────────────

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrRoomUnavailable),
		errors.Is(err, service.ErrCheckoutClosed):
		return http.StatusConflict
	case errors.Is(err, service.ErrPaymentIncomplete):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrPaymentProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes the status mapped from err. Server-side failures are
// logged and their details withheld from the client.
func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := errorStatus(err)
	switch status {
	case http.StatusInternalServerError:
		log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		writeError(w, status, "internal server error")
	case http.StatusBadGateway:
		log.Warn("payment provider failure",
			slog.String("path", r.URL.Path),
			sl.Err(err),
		)
		writeError(w, status, "payment provider unavailable, try again")
	default:
		writeError(w, status, err.Error())
	}
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
