package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
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

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service considers itself ready.",
	})
)

// Trading metrics.
var (
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papertrade_trades_total",
			Help: "Executed trades by side.",
		},
		[]string{"side"},
	)

	tradedValue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papertrade_traded_value_cents_total",
			Help: "Total traded value in minor units, by side.",
		},
		[]string{"side"},
	)

	quoteTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "papertrade_quote_ticks_total",
		Help: "Price drift ticks applied to the simulated market.",
	})
)

var initOnce sync.Once

// Init registers all metrics in the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration, readyGauge,
			tradesTotal, tradedValue, quoteTicks,
		)
	})
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady flips the readiness gauge.
func SetReady(ready bool) {
	if ready {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

// ObserveTrade records an executed trade.
func ObserveTrade(side string, valueCents int64) {
	tradesTotal.WithLabelValues(side).Inc()
	tradedValue.WithLabelValues(side).Add(float64(valueCents))
}

// QuoteTick counts one market drift tick.
func QuoteTick() {
	quoteTicks.Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
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

// CanonicalPath collapses identifier segments so metric cardinality stays
// bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	// /v1/stocks/<symbol>[/history]
	if len(parts) >= 4 && parts[1] == "v1" && parts[2] == "stocks" && parts[3] != "" && parts[3] != "search" {
		if len(parts) == 4 {
			return "/v1/stocks/:symbol"
		}
		if len(parts) == 5 && parts[4] == "history" {
			return "/v1/stocks/:symbol/history"
		}
	}
	return path
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

// Flush passes through so SSE responses stay streamable when instrumented.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
