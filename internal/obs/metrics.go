package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gateway HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Session lifecycle metrics.
var (
	sessionHydrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_hydrations_total",
			Help: "Session hydration attempts by outcome.",
		},
		[]string{"outcome"},
	)

	tokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_token_refreshes_total",
			Help: "Silent token refresh attempts by result.",
		},
		[]string{"result"},
	)

	guardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_decisions_total",
			Help: "Route guard outcomes for protected navigations.",
		},
		[]string{"outcome"},
	)
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		sessionHydrations, tokenRefreshes, guardDecisions,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHydration records the terminal outcome of a hydration pass.
func ObserveHydration(outcome string) {
	sessionHydrations.WithLabelValues(outcome).Inc()
}

// ObserveRefresh records a refresh attempt result ("ok" or "failed").
func ObserveRefresh(result string) {
	tokenRefreshes.WithLabelValues(result).Inc()
}

// ObserveGuard records a route guard decision by name.
func ObserveGuard(outcome string) {
	guardDecisions.WithLabelValues(outcome).Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps event streams working through the instrumented chain.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
