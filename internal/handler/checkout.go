package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/nsc-international/internal/lib/logger/sl"
	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
	"github.com/Shivanand-hulikatti/nsc-international/internal/service"
)

// maxWebhookBody caps the Stripe payload we are willing to buffer.
const maxWebhookBody = 64 << 10

// Checkouts is the checkout service as seen by HTTP.
type Checkouts interface {
	StartCheckout(ctx context.Context, p model.Principal, req model.CheckoutRequest) (*model.CheckoutSession, error)
	ConfirmFromRedirect(ctx context.Context, p model.Principal, sessionID string) (*model.Order, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	GetCheckout(ctx context.Context, p model.Principal, id string) (*model.StripeEventCheckout, error)
}

// CheckoutHandler serves the Stripe checkout flow.
type CheckoutHandler struct {
	log *slog.Logger
	svc Checkouts
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(log *slog.Logger, svc Checkouts) *CheckoutHandler {
	return &CheckoutHandler{log: log, svc: svc}
}

// StartCheckout handles POST /checkout
// Creates a Stripe Checkout Session for the cart and returns its URL.
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if !decodeOrReject(w, r, &req) {
		return
	}

	sess, err := h.svc.StartCheckout(r.Context(), principal(r), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// Success handles GET /checkout/success?session_id=
// Finalizes a paid session when the buyer lands back from Stripe, so the
// order exists even if the webhook is late.
func (h *CheckoutHandler) Success(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	order, err := h.svc.ConfirmFromRedirect(r.Context(), principal(r), sessionID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// GetCheckout handles GET /checkout/{id}
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	c, err := h.svc.GetCheckout(r.Context(), principal(r), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Webhook handles POST /stripe/webhook
// A 2xx tells Stripe to stop retrying. Only a bad signature gets a 4xx and
// only failures a redelivery can fix get a 5xx.
func (h *CheckoutHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	err = h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, service.ErrWebhookSignature):
		writeError(w, http.StatusBadRequest, "invalid webhook signature")
	case errors.Is(err, service.ErrMalformedWebhook):
		h.log.Warn("malformed webhook acknowledged", sl.Err(err))
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, service.ErrCheckoutClosed):
		// Paid after the checkout was closed; staff refund it.
		h.log.Error("payment received for closed checkout", sl.Err(err))
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, service.ErrRoomUnavailable):
		// The checkout stays pending for a manual finalize or refund.
		h.log.Error("paid checkout could not be finalized", sl.Err(err))
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	default:
		h.log.Error("webhook processing failed", sl.Err(err))
		writeError(w, http.StatusInternalServerError, "webhook processing failed")
	}
}
