package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/nsc-international/internal/lib/logger/sl"
	"github.com/Shivanand-hulikatti/nsc-international/internal/metrics"
	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
	"github.com/Shivanand-hulikatti/nsc-international/internal/repository"
	"github.com/Shivanand-hulikatti/nsc-international/internal/service"
)

const (
	parentToken = "parent-token"
	staffToken  = "staff-token"
)

var (
	parent = model.Principal{UserID: "u-parent"}
	staff  = model.Principal{UserID: "u-staff", IsStaff: true}
)

type stubTokens struct{}

func (stubTokens) Parse(raw string) (model.Principal, error) {
	switch raw {
	case parentToken:
		return parent, nil
	case staffToken:
		return staff, nil
	}
	return model.Principal{}, errors.New("bad token")
}

// Stubs embed the interface so only the methods a test touches need a body.

type stubAccounts struct {
	Accounts
	players []model.Player
	seen    model.Principal
}

func (s *stubAccounts) ListPlayers(_ context.Context, p model.Principal) ([]model.Player, error) {
	s.seen = p
	return s.players, nil
}

func (s *stubAccounts) Register(_ context.Context, req model.RegisterRequest) (*model.User, error) {
	if req.Email == "taken@example.com" {
		return nil, service.ErrEmailTaken
	}
	return &model.User{ID: "u-new", Email: req.Email}, nil
}

type stubEvents struct {
	Events
	filter  model.EventFilter
	event   *model.Event
	gets    int
	created bool
	err     error
}

func (s *stubEvents) ListEvents(_ context.Context, f model.EventFilter) ([]model.Event, error) {
	s.filter = f
	return nil, s.err
}

func (s *stubEvents) GetEvent(_ context.Context, id string) (*model.Event, error) {
	s.gets++
	if s.event == nil || s.event.ID != id {
		return nil, repository.ErrNotFound
	}
	return s.event, nil
}

func (s *stubEvents) CreateEvent(_ context.Context, req model.EventRequest) (*model.Event, error) {
	s.created = true
	return &model.Event{ID: "e-new", Title: req.Title}, nil
}

type stubLocations struct {
	Locations
	existing map[string]bool
}

func (s *stubLocations) EnsureCountry(_ context.Context, req model.CountryRequest) (*model.Country, bool, error) {
	created := !s.existing[req.Name]
	s.existing[req.Name] = true
	return &model.Country{ID: "c-1", Name: req.Name}, created, nil
}

type stubCheckouts struct {
	Checkouts
	principal model.Principal
	signature string
	payload   string
	err       error
}

func (s *stubCheckouts) StartCheckout(_ context.Context, p model.Principal, req model.CheckoutRequest) (*model.CheckoutSession, error) {
	s.principal = p
	return &model.CheckoutSession{CheckoutID: "chk-1", SessionID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, s.err
}

func (s *stubCheckouts) ConfirmFromRedirect(_ context.Context, p model.Principal, sessionID string) (*model.Order, error) {
	s.principal = p
	if s.err != nil {
		return nil, s.err
	}
	return &model.Order{ID: "o-1", StripeSessionID: sessionID}, nil
}

func (s *stubCheckouts) HandleWebhook(_ context.Context, payload []byte, signature string) error {
	s.payload = string(payload)
	s.signature = signature
	return s.err
}

func newTestRouter(svc Services, m *metrics.Metrics) http.Handler {
	return NewRouter(RouterConfig{
		Log:            sl.Discard(),
		Tokens:         stubTokens{},
		AllowedOrigins: []string{"https://app.nsc.test"},
		Metrics:        m,
	}, svc)
}

func do(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestHealthCheck(t *testing.T) {
	rr := do(newTestRouter(Services{}, nil), http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: title is required", service.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: %w: division", service.ErrInvalidInput, service.ErrInactive), http.StatusBadRequest},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("get event: %w", repository.ErrNotFound), http.StatusNotFound},
		{repository.ErrConflict, http.StatusConflict},
		{service.ErrEmailTaken, http.StatusConflict},
		{fmt.Errorf("%w: King", service.ErrRoomUnavailable), http.StatusConflict},
		{service.ErrCheckoutClosed, http.StatusConflict},
		{service.ErrPaymentIncomplete, http.StatusPaymentRequired},
		{fmt.Errorf("%w: timeout", service.ErrPaymentProvider), http.StatusBadGateway},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}

func TestAuthentication(t *testing.T) {
	router := newTestRouter(Services{Accounts: &stubAccounts{}}, nil)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "bearer " + parentToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/players", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestListPlayers_EmptyArrayAndPrincipal(t *testing.T) {
	accounts := &stubAccounts{}
	rr := do(newTestRouter(Services{Accounts: accounts}, nil), http.MethodGet, "/players", "", parentToken)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
	assert.Equal(t, parent, accounts.seen)
}

func TestRegister(t *testing.T) {
	router := newTestRouter(Services{Accounts: &stubAccounts{}}, nil)

	rr := do(router, http.MethodPost, "/auth/register", `{"email":"new@example.com","password":"longenough","first_name":"Ava"}`, "")
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":"u-new"`)

	rr = do(router, http.MethodPost, "/auth/register", `{"email":"taken@example.com","password":"longenough","first_name":"Ava"}`, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"email already registered"}`, rr.Body.String())

	rr = do(router, http.MethodPost, "/auth/register", `{"email":"x@example.com","nickname":"ace"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestStaffOnlyRoutes(t *testing.T) {
	events := &stubEvents{}
	router := newTestRouter(Services{Events: events}, nil)
	body := `{"title":"Summer Slam","start_date":"2026-07-10","end_date":"2026-07-12"}`

	rr := do(router, http.MethodPost, "/events", body, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(router, http.MethodPost, "/events", body, parentToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, events.created)

	rr = do(router, http.MethodPost, "/events", body, staffToken)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.True(t, events.created)
}

func TestListEvents_Filters(t *testing.T) {
	events := &stubEvents{}
	router := newTestRouter(Services{Events: events}, nil)

	rr := do(router, http.MethodGet, "/events?status=draft&type=t-1", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
	assert.Equal(t, model.EventPublished, events.filter.Status)
	assert.Equal(t, "t-1", events.filter.EventTypeID)
	assert.Nil(t, events.filter.UpcomingAt)

	rr = do(router, http.MethodGet, "/events?status=draft&upcoming=true", "", staffToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.EventDraft, events.filter.Status)
	assert.NotNil(t, events.filter.UpcomingAt)
}

func TestListEvents_InternalErrorIsHidden(t *testing.T) {
	events := &stubEvents{err: errors.New("pq: password authentication failed for user nsc")}
	rr := do(newTestRouter(Services{Events: events}, nil), http.MethodGet, "/events", "", "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
}

func TestGetEvent_DraftHiddenFromPublic(t *testing.T) {
	id := uuid.NewString()
	events := &stubEvents{event: &model.Event{ID: id, Status: model.EventDraft}}
	router := newTestRouter(Services{Events: events}, nil)

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/events/"+id, "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/events/"+id, "", parentToken).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/events/"+id, "", staffToken).Code)

	events.event.Status = model.EventPublished
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/events/"+id, "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/events/"+uuid.NewString(), "", "").Code)
}

func TestMalformedPathIDIsNotFound(t *testing.T) {
	events := &stubEvents{}
	// The other stubs have no method bodies, so reaching a service would panic
	// and answer 500.
	router := newTestRouter(Services{
		Accounts:  &stubAccounts{},
		Events:    events,
		Locations: &stubLocations{},
		Checkouts: &stubCheckouts{},
	}, nil)

	tests := []struct {
		method string
		path   string
		token  string
	}{
		{http.MethodGet, "/events/summer-slam", ""},
		{http.MethodGet, "/events/1", staffToken},
		{http.MethodGet, "/countries/CA/states", ""},
		{http.MethodGet, "/hotels/harbor-inn", ""},
		{http.MethodGet, "/players/abc", parentToken},
		{http.MethodGet, "/orders/abc", parentToken},
		{http.MethodGet, "/checkout/abc", parentToken},
		{http.MethodPost, "/reservations/abc/cancel", parentToken},
		{http.MethodDelete, "/events/abc", staffToken},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := do(router, tt.method, tt.path, "", tt.token)
			assert.Equal(t, http.StatusNotFound, rr.Code)
			assert.JSONEq(t, `{"error":"not found"}`, rr.Body.String())
		})
	}
	assert.Zero(t, events.gets)
}

func TestEnsureCountry_CreatedThenExisting(t *testing.T) {
	router := newTestRouter(Services{Locations: &stubLocations{existing: map[string]bool{}}}, nil)

	rr := do(router, http.MethodPost, "/countries", `{"name":"Canada","code":"CA"}`, staffToken)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = do(router, http.MethodPost, "/countries", `{"name":"Canada"}`, staffToken)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestStartCheckout(t *testing.T) {
	checkouts := &stubCheckouts{}
	router := newTestRouter(Services{Checkouts: checkouts}, nil)

	rr := do(router, http.MethodPost, "/checkout", `{"event_id":"e-1","player_ids":["p-1"]}`, parentToken)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, parent, checkouts.principal)
	assert.Contains(t, rr.Body.String(), `"url":"https://checkout.stripe.test/cs_1"`)
}

func TestCheckoutSuccess(t *testing.T) {
	checkouts := &stubCheckouts{}
	router := newTestRouter(Services{Checkouts: checkouts}, nil)

	rr := do(router, http.MethodGet, "/checkout/success", "", parentToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(router, http.MethodGet, "/checkout/success?session_id=cs_1", "", parentToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"stripe_session_id":"cs_1"`)

	checkouts.err = fmt.Errorf("%w: payment status is unpaid", service.ErrPaymentIncomplete)
	rr = do(router, http.MethodGet, "/checkout/success?session_id=cs_1", "", parentToken)
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)

	checkouts.err = fmt.Errorf("%w: stripe down", service.ErrPaymentProvider)
	rr = do(router, http.MethodGet, "/checkout/success?session_id=cs_1", "", parentToken)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.NotContains(t, rr.Body.String(), "stripe down")
}

func TestWebhook(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"processed", nil, http.StatusOK},
		{"bad signature", fmt.Errorf("%w: signature mismatch", service.ErrWebhookSignature), http.StatusBadRequest},
		{"no session", fmt.Errorf("%w: evt_1 carries no session", service.ErrMalformedWebhook), http.StatusOK},
		{"closed checkout", fmt.Errorf("%w: checkout is expired", service.ErrCheckoutClosed), http.StatusOK},
		{"room sold out", fmt.Errorf("%w: Double Queen", service.ErrRoomUnavailable), http.StatusOK},
		{"transient", errors.New("db unavailable"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkouts := &stubCheckouts{err: tt.err}
			router := newTestRouter(Services{Checkouts: checkouts}, nil)

			req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader(`{"id":"evt_1"}`))
			req.Header.Set("Stripe-Signature", "t=1,v1=abc")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			assert.Equal(t, `{"id":"evt_1"}`, checkouts.payload)
			assert.Equal(t, "t=1,v1=abc", checkouts.signature)
		})
	}
}

func TestCORS(t *testing.T) {
	router := newTestRouter(Services{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/events", nil)
	req.Header.Set("Origin", "https://app.nsc.test")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.nsc.test", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.test")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(Services{}, metrics.New())

	require.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "", "").Code)

	rr := do(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `nsc_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
