// Package metrics owns the Prometheus registry and the collectors the HTTP
// layer, checkout flow, and outbox worker report into.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports.
type Metrics struct {
	reg *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	checkoutsStarted   prometheus.Counter
	checkoutsFinalized *prometheus.CounterVec
	finalizeDuration   prometheus.Histogram
	amountMismatches   prometheus.Counter
	webhooks           *prometheus.CounterVec
	outboxPublished    *prometheus.CounterVec
}

// New builds a fresh registry with Go and process collectors plus the
// service collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nsc_http_requests_total",
			Help: "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nsc_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.3, 0.6, 1, 3, 6},
		}, []string{"method", "route"}),
		checkoutsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "nsc_checkouts_started_total",
			Help: "Stripe checkout sessions created.",
		}),
		checkoutsFinalized: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nsc_checkouts_finalized_total",
			Help: "Checkout finalization attempts by result.",
		}, []string{"result"}),
		finalizeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nsc_checkout_finalize_duration_seconds",
			Help:    "Time spent finalizing a checkout.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.3, 0.6, 1, 3, 6},
		}),
		amountMismatches: f.NewCounter(prometheus.CounterOpts{
			Name: "nsc_checkout_amount_mismatch_total",
			Help: "Finalized orders whose Stripe amount differs from the computed total.",
		}),
		webhooks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nsc_stripe_webhooks_total",
			Help: "Verified Stripe webhook deliveries by event type.",
		}, []string{"type"}),
		outboxPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nsc_outbox_publish_total",
			Help: "Outbox publish attempts by event type and outcome.",
		}, []string{"event_type", "outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Middleware records request counts and latency keyed by the chi route
// pattern, so /events/{id} is one series rather than one per id.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// CheckoutStarted counts a created checkout session.
func (m *Metrics) CheckoutStarted() { m.checkoutsStarted.Inc() }

// CheckoutFinalized records one finalization attempt.
func (m *Metrics) CheckoutFinalized(result string, d time.Duration) {
	m.checkoutsFinalized.WithLabelValues(result).Inc()
	m.finalizeDuration.Observe(d.Seconds())
}

// AmountMismatch counts an order whose charged amount differs from its total.
func (m *Metrics) AmountMismatch() { m.amountMismatches.Inc() }

// WebhookReceived counts a verified webhook delivery.
func (m *Metrics) WebhookReceived(eventType string) {
	m.webhooks.WithLabelValues(eventType).Inc()
}

// OutboxPublished counts one outbox publish attempt.
func (m *Metrics) OutboxPublished(eventType string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.outboxPublished.WithLabelValues(eventType, outcome).Inc()
}
