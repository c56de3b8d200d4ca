package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

// Accounts is the account service as seen by HTTP.
type Accounts interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error)
	Me(ctx context.Context, p model.Principal) (*model.User, error)
	CreatePlayer(ctx context.Context, p model.Principal, req model.PlayerRequest) (*model.Player, error)
	UpdatePlayer(ctx context.Context, p model.Principal, id string, req model.PlayerRequest) (*model.Player, error)
	GetPlayer(ctx context.Context, p model.Principal, id string) (*model.Player, error)
	ListPlayers(ctx context.Context, p model.Principal) ([]model.Player, error)
	ListOrders(ctx context.Context, p model.Principal) ([]model.Order, error)
	GetOrder(ctx context.Context, p model.Principal, id string) (*model.Order, error)
}

// AccountHandler serves authentication, players, and orders.
type AccountHandler struct {
	log *slog.Logger
	svc Accounts
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(log *slog.Logger, svc Accounts) *AccountHandler {
	return &AccountHandler{log: log, svc: svc}
}

// Register handles POST /auth/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	user, err := h.svc.Register(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	tok, err := h.svc.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// Me handles GET /me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ─── Players ──────────────────────────────────────────────────────────────────

// CreatePlayer handles POST /players
func (h *AccountHandler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req model.PlayerRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	player, err := h.svc.CreatePlayer(r.Context(), principal(r), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

// UpdatePlayer handles PUT /players/{id}
func (h *AccountHandler) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.PlayerRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	player, err := h.svc.UpdatePlayer(r.Context(), principal(r), id, req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// GetPlayer handles GET /players/{id}
func (h *AccountHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	player, err := h.svc.GetPlayer(r.Context(), principal(r), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// ListPlayers handles GET /players
// Returns the caller's own players.
func (h *AccountHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.svc.ListPlayers(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(players))
}

// ─── Orders ───────────────────────────────────────────────────────────────────

// ListOrders handles GET /orders
// Staff see every order, everyone else only their own.
func (h *AccountHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(orders))
}

// GetOrder handles GET /orders/{id}
func (h *AccountHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(r.Context(), principal(r), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
