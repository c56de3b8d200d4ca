package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/nsc-international/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Services groups everything the router dispatches to.
type Services struct {
	Accounts  Accounts
	Events    Events
	Locations Locations
	Hotels    Hotels
	Checkouts Checkouts
}

// RouterConfig carries the cross-cutting pieces of the router.
type RouterConfig struct {
	Log            *slog.Logger
	Tokens         TokenParser
	AllowedOrigins []string
	// Metrics is optional; nil disables /metrics and request instrumentation.
	Metrics *metrics.Metrics
}

// NewRouter builds the full HTTP API.
func NewRouter(cfg RouterConfig, svc Services) http.Handler {
	accounts := NewAccountHandler(cfg.Log, svc.Accounts)
	events := NewEventHandler(cfg.Log, svc.Events)
	locations := NewLocationHandler(cfg.Log, svc.Locations)
	hotels := NewHotelHandler(cfg.Log, svc.Hotels)
	checkouts := NewCheckoutHandler(cfg.Log, svc.Checkouts)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(cfg.Log))         // structured access log
	r.Use(CORS(cfg.AllowedOrigins))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	// Health
	r.Get("/health", HealthCheck)

	// Stripe signs the raw body; no auth, no JSON decoding.
	r.Post("/stripe/webhook", checkouts.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.Tokens))

		r.Post("/auth/register", accounts.Register)
		r.Post("/auth/login", accounts.Login)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", events.ListEvents)
			r.Get("/{id}", events.GetEvent)

			r.Group(func(r chi.Router) {
				r.Use(RequireStaff)
				r.Post("/", events.CreateEvent)
				r.Put("/{id}", events.UpdateEvent)
				r.Delete("/{id}", events.DeleteEvent)
				r.Get("/{id}/attendance", events.ListAttendance)
			})
		})

		r.Get("/event-types", events.ListEventTypes)
		r.Get("/divisions", events.ListDivisions)

		r.Get("/countries", locations.ListCountries)
		r.Get("/countries/{id}/states", locations.ListStates)
		r.Get("/states/{id}/cities", locations.ListCities)
		r.Get("/cities/{id}/sites", locations.ListSites)

		r.Get("/hotels", hotels.ListHotels)
		r.Get("/hotels/{id}", hotels.GetHotel)
		r.Get("/hotels/{id}/rooms", hotels.ListRooms)
		r.Get("/rooms/{id}/availability", hotels.Availability)

		// Signed-in parents and staff
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)

			r.Get("/me", accounts.Me)

			r.Get("/players", accounts.ListPlayers)
			r.Post("/players", accounts.CreatePlayer)
			r.Get("/players/{id}", accounts.GetPlayer)
			r.Put("/players/{id}", accounts.UpdatePlayer)

			r.Get("/orders", accounts.ListOrders)
			r.Get("/orders/{id}", accounts.GetOrder)

			r.Post("/checkout", checkouts.StartCheckout)
			r.Get("/checkout/success", checkouts.Success)
			r.Get("/checkout/{id}", checkouts.GetCheckout)

			r.Get("/reservations", hotels.ListReservations)
			r.Post("/reservations/{id}/cancel", hotels.CancelReservation)
		})

		// Organisers only
		r.Group(func(r chi.Router) {
			r.Use(RequireStaff)

			r.Post("/event-types", events.CreateEventType)
			r.Post("/divisions", events.CreateDivision)
			r.Patch("/divisions/{id}", events.SetDivisionActive)
			r.Get("/contacts", events.ListContacts)
			r.Post("/contacts", events.CreateContact)

			r.Post("/countries", locations.EnsureCountry)
			r.Post("/states", locations.EnsureState)
			r.Post("/cities", locations.EnsureCity)
			r.Post("/sites", locations.CreateSite)

			r.Post("/hotels", hotels.CreateHotel)
			r.Put("/hotels/{id}", hotels.UpdateHotel)
			r.Post("/hotels/{id}/rooms", hotels.CreateRoom)
			r.Put("/rooms/{id}", hotels.UpdateRoom)
		})
	})

	return r
}
