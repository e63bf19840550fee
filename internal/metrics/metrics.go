package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notes"

// Metrics holds the HTTP and database metrics of the API server. Each
// instance has its own registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	DBConnPoolStats  *prometheus.GaugeVec

	dbStats func() sql.DBStats
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
		DBConnPoolStats: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"stat"},
		),
	}
	m.registry.MustRegister(m.RequestCounter, m.RequestDuration, m.RequestsInFlight, m.DBConnPoolStats)
	return m
}

// WatchDB makes every scrape refresh the pool gauges from stats, e.g. (*sql.DB).Stats.
func (m *Metrics) WatchDB(stats func() sql.DBStats) {
	m.dbStats = stats
}

func (m *Metrics) RecordDBPoolStats(s sql.DBStats) {
	m.DBConnPoolStats.WithLabelValues("open").Set(float64(s.OpenConnections))
	m.DBConnPoolStats.WithLabelValues("in_use").Set(float64(s.InUse))
	m.DBConnPoolStats.WithLabelValues("idle").Set(float64(s.Idle))
	m.DBConnPoolStats.WithLabelValues("wait_count").Set(float64(s.WaitCount))
	m.DBConnPoolStats.WithLabelValues("wait_duration_ms").Set(float64(s.WaitDuration.Milliseconds()))
}

// Middleware records request count and latency labelled by the matched chi
// route pattern, so ids in paths do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.dbStats != nil {
			m.RecordDBPoolStats(m.dbStats())
		}
		h.ServeHTTP(w, r)
	})
}
