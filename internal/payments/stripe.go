package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/Shivanand-hulikatti/nsc-international/internal/config"
)

// Stripe talks to the Stripe API.
type Stripe struct {
	api           *client.API
	webhookSecret string
	currency      string
	successURL    string
	cancelURL     string
}

// NewStripe constructs a Stripe gateway from configuration.
func NewStripe(cfg config.StripeConfig) *Stripe {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &Stripe{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		currency:      strings.ToLower(cfg.Currency),
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

// CreateSession opens a payment-mode checkout session.
func (s *Stripe) CreateSession(ctx context.Context, p SessionParams) (*Session, error) {
	const op = "payments.Stripe.CreateSession"

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(p.CheckoutID),
		LineItems:         make([]*stripe.CheckoutSessionLineItemParams, 0, len(p.LineItems)),
	}
	params.Context = ctx
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	for _, li := range p.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		if li.Description != "" {
			product.Description = stripe.String(li.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(s.currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(li.UnitAmountCents),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return fromStripe(sess), nil
}

// GetSession reads a checkout session.
func (s *Stripe) GetSession(ctx context.Context, id string) (*Session, error) {
	const op = "payments.Stripe.GetSession"

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return fromStripe(sess), nil
}

// ExpireSession closes an open checkout session so it can no longer be paid.
func (s *Stripe) ExpireSession(ctx context.Context, id string) (*Session, error) {
	const op = "payments.Stripe.ExpireSession"

	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	sess, err := s.api.CheckoutSessions.Expire(id, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return fromStripe(sess), nil
}

// ParseWebhook verifies a delivery against the configured signing secret.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	return ParseWebhook(payload, signature, s.webhookSecret)
}

// ParseWebhook verifies payload against the Stripe-Signature header and
// decodes the checkout session it carries, if any.
func ParseWebhook(payload []byte, signature, secret string) (*WebhookEvent, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: evt.ID, Type: string(evt.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") || evt.Data == nil {
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	out.Session = fromStripe(&sess)
	return out, nil
}

func fromStripe(s *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:                s.ID,
		URL:               s.URL,
		Status:            string(s.Status),
		PaymentStatus:     string(s.PaymentStatus),
		ClientReferenceID: s.ClientReferenceID,
		AmountTotal:       s.AmountTotal,
		Metadata:          s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}
