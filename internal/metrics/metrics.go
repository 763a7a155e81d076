// Package metrics provides Prometheus instrumentation for the settlement
// engine.
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
	// StakesTotal counts accepted stakes, partitioned by outcome.
	StakesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settld_stakes_total",
		Help: "Total number of stakes accepted",
	}, []string{"outcome"})

	// StakeVolume tracks cumulative staked value in base units.
	StakeVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settld_stake_volume_total",
		Help: "Cumulative staked value in base units",
	}, []string{"outcome"})

	// RedemptionsTotal counts successful redemptions.
	RedemptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settld_redemptions_total",
		Help: "Total number of successful redemptions",
	})

	// FeesCollected tracks cumulative protocol fees in base units.
	FeesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settld_fees_collected_total",
		Help: "Cumulative protocol fees in base units",
	})

	// ActiveEvents tracks the number of events accepting stakes.
	ActiveEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settld_active_events",
		Help: "Number of currently active events",
	})

	// ResolvedEvents counts lifecycle transitions to resolved.
	ResolvedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settld_resolved_events_total",
		Help: "Total number of events resolved",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settld_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settld_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settld_http_request_duration_seconds",
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

		// Use the raw path for the label; the API surface is small enough
		// that cardinality stays bounded.
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
