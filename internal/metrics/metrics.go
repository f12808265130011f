// Package metrics provides Prometheus instrumentation for the flip engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FlipsTotal counts resolved flips, partitioned by chosen side and outcome.
	FlipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flip_flips_total",
		Help: "Total number of resolved flips",
	}, []string{"side", "outcome"})

	// PayoutsTotal counts prize payouts, partitioned by mode (paid, deferred).
	PayoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flip_payouts_total",
		Help: "Total prize payouts by settlement mode",
	}, []string{"mode"})

	// ClaimsTotal counts successful payouts of deferred winnings.
	ClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flip_claims_total",
		Help: "Total successful claims of deferred winnings",
	})

	// PoolBalance tracks the current pool balance. Approximate: decimal
	// converted to float64 for gauging only, never for accounting.
	PoolBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flip_pool_balance",
		Help: "Current pool balance in base units",
	})

	// UnclaimedTotal tracks the aggregate outstanding user IOUs.
	UnclaimedTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flip_unclaimed_total",
		Help: "Aggregate unclaimed winnings in base units",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flip_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flip_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flip_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the route surface is small and
		// address segments are bounded, so cardinality stays manageable.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
