// Package app wires configuration, storage, and services into a runnable
// process. The CLI commands build an App and call into it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/nsc-international/internal/cache"
	"github.com/Shivanand-hulikatti/nsc-international/internal/config"
	"github.com/Shivanand-hulikatti/nsc-international/internal/database"
	"github.com/Shivanand-hulikatti/nsc-international/internal/events"
	"github.com/Shivanand-hulikatti/nsc-international/internal/handler"
	"github.com/Shivanand-hulikatti/nsc-international/internal/lib/jwt"
	"github.com/Shivanand-hulikatti/nsc-international/internal/lib/logger/sl"
	"github.com/Shivanand-hulikatti/nsc-international/internal/metrics"
	"github.com/Shivanand-hulikatti/nsc-international/internal/payments"
	"github.com/Shivanand-hulikatti/nsc-international/internal/repository"
	"github.com/Shivanand-hulikatti/nsc-international/internal/service"
)

const shutdownTimeout = 10 * time.Second

// App owns every long-lived dependency of the process.
type App struct {
	log *slog.Logger
	cfg *config.Config

	pool      *pgxpool.Pool
	redis     *redis.Client
	publisher events.Publisher

	Metrics   *metrics.Metrics
	Store     *repository.Store
	Tokens    *jwt.Manager
	Accounts  *service.AccountService
	Events    *service.EventService
	Locations *service.LocationService
	Hotels    *service.HotelService
	Checkout  *service.CheckoutService
}

// New connects to PostgreSQL (and Redis/Kafka when configured) and builds
// the service layer.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	a := &App{log: log, cfg: cfg, Metrics: metrics.New()}

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, log, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.pool = pool
	a.Store = repository.NewStore(pool)
	log.Info("connected to postgres")

	// ── 2. Redis (optional) ───────────────────────────────────────────────
	var (
		eventCache service.EventCache
		deps       = service.CheckoutDeps{Observer: a.Metrics}
	)
	if cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			// Locks fall back to the row lock, reads go to the database.
			log.Warn("redis unavailable; running without cache", sl.Err(err))
		} else {
			a.redis = client
			eventCache = cache.NewEventCache(log, client, cfg.Redis.CacheTTL)
			deps.Locker = cache.NewLocker(client, cfg.Redis.LockTTL)
			deps.Dedup = cache.NewDedup(client, cfg.Redis.DedupTTL)
			log.Info("connected to redis")
		}
	}

	// ── 3. Event publisher ────────────────────────────────────────────────
	a.publisher, err = newPublisher(log, cfg.Kafka)
	if err != nil {
		a.Close()
		return nil, err
	}

	// ── 4. Wire up services ───────────────────────────────────────────────
	a.Tokens = jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	a.Accounts = service.NewAccountService(log, a.Store, a.Tokens)
	a.Events = service.NewEventService(log, a.Store, eventCache)
	a.Locations = service.NewLocationService(log, a.Store)
	a.Hotels = service.NewHotelService(log, a.Store)
	a.Checkout = service.NewCheckoutService(
		log,
		service.NewCheckoutStore(a.Store),
		payments.NewStripe(cfg.Stripe),
		service.CheckoutConfig{ServiceFeeBasisPoints: cfg.Checkout.ServiceFeeBasisPoints},
		deps,
	)

	return a, nil
}

func newPublisher(log *slog.Logger, cfg config.KafkaConfig) (events.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		log.Info("no kafka brokers configured; outbox events are logged only")
		return events.NewLogPublisher(log), nil
	}
	p, err := events.NewKafkaPublisher(cfg.Brokers, cfg.Topic, nil)
	if err != nil {
		return nil, fmt.Errorf("kafka: %w", err)
	}
	return p, nil
}

// Router builds the HTTP API over the app's services.
func (a *App) Router() http.Handler {
	return handler.NewRouter(handler.RouterConfig{
		Log:            a.log,
		Tokens:         a.Tokens,
		AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
		Metrics:        a.Metrics,
	}, handler.Services{
		Accounts:  a.Accounts,
		Events:    a.Events,
		Locations: a.Locations,
		Hotels:    a.Hotels,
		Checkouts: a.Checkout,
	})
}

// Serve runs the HTTP server and the outbox worker until ctx is cancelled,
// then shuts the server down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + a.cfg.HTTP.Port,
		Handler:      a.Router(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}
	worker := events.NewOutboxWorker(
		a.log,
		a.Store,
		a.publisher,
		a.Metrics,
		a.cfg.Checkout.OutboxPollInterval,
		a.cfg.Checkout.OutboxBatchSize,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("outbox worker: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		a.log.Info("server stopped")
		return nil
	})

	return g.Wait()
}

// Close releases every connection the app holds.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("failed to close publisher", sl.Err(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis", sl.Err(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
