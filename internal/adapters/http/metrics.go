package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks request volume plus the auth outcomes that matter for
// alerting: failed logins, lockouts, and refresh rejections.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	loginsTotal     *prometheus.CounterVec
	registrations   prometheus.Counter
	refreshTotal    *prometheus.CounterVec
	lockoutsTotal   prometheus.Counter
	oauthLogins     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_http_requests_total",
			Help: "HTTP requests handled, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auth_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		loginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Credential login attempts, by outcome.",
		}, []string{"outcome"}),
		registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Accounts registered through the credential flow.",
		}),
		refreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_refresh_total",
			Help: "Refresh token rotations, by outcome.",
		}, []string{"outcome"}),
		lockoutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "auth_lockouts_total",
			Help: "Accounts locked after repeated login failures.",
		}),
		oauthLogins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_oauth_logins_total",
			Help: "Completed OAuth callbacks, by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
}

// MetricsHandler exposes the Prometheus scrape endpoint for the registry.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// middleware records per-route counters and latency. The route label uses
// the chi pattern, not the raw path, to keep cardinality bounded.
func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		statusCode := recorder.statusCode
		if statusCode == 0 {
			statusCode = http.StatusOK
		}
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) observeLogin(outcome string) {
	if m != nil {
		m.loginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observeRegistration() {
	if m != nil {
		m.registrations.Inc()
	}
}

func (m *Metrics) observeRefresh(outcome string) {
	if m != nil {
		m.refreshTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observeLockout() {
	if m != nil {
		m.lockoutsTotal.Inc()
	}
}

func (m *Metrics) observeOAuthLogin(provider, outcome string) {
	if m != nil {
		m.oauthLogins.WithLabelValues(provider, outcome).Inc()
	}
}
