package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"salterio-site/internal/backend"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several servers can live in one
// process, as they do in tests.
type Metrics struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	authEvents *prometheus.CounterVec
	uploads    *prometheus.CounterVec
	cleanups   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salterio",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salterio",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salterio",
			Name:      "auth_events_total",
			Help:      "Identity state changes.",
		}, []string{"event"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salterio",
			Name:      "gallery_upload_files_total",
			Help:      "Gallery upload outcomes per file.",
		}, []string{"state"}),
		cleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salterio",
			Name:      "object_cleanup_total",
			Help:      "Object cleanup outcomes on delete.",
		}, []string{"bucket", "state"}),
	}
	m.registry.MustRegister(
		m.requests, m.duration, m.authEvents, m.uploads, m.cleanups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// AuthListener counts identity events; register it with OnAuthStateChange.
func (m *Metrics) AuthListener(event backend.AuthEvent, _ *backend.User) {
	m.authEvents.WithLabelValues(string(event)).Inc()
}

func (m *Metrics) ObserveUpload(state string) {
	m.uploads.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveCleanup(bucket string, state backend.CleanupState) {
	m.cleanups.WithLabelValues(bucket, string(state)).Inc()
}
