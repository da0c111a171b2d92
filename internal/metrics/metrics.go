// Package metrics holds the Prometheus collectors of the service. They are
// registered with the default registry and served by promhttp at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recompute modes.
const (
	ModeInline   = "inline"
	ModeDetached = "detached"
)

var (
	// Similarity matrix maintenance
	RecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "similarity_recompute_duration_seconds",
			Help:    "Duration of a full similarity rewrite for one listing",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	RecomputeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similarity_recompute_failures_total",
			Help: "Total number of failed similarity rewrites",
		},
		[]string{"mode"},
	)

	EdgesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "similarity_edges_written_total",
			Help: "Total number of directed similarity edges inserted",
		},
	)

	// Vector generation
	EmbedFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vectors_embed_failures_total",
			Help: "Total number of vector bundles replaced by an empty bundle after an embedding error",
		},
	)

	EmbedderBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "embedder_circuit_breaker_state",
			Help: "Circuit breaker state per remote embedder (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	// Read queries
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listing_query_duration_seconds",
			Help:    "Duration of listing read queries by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Category cache
	CategoryCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "category_cache_hits_total",
			Help: "Total number of category lookups served from Valkey",
		},
	)

	CategoryCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "category_cache_misses_total",
			Help: "Total number of category lookups that fell through to PostgreSQL",
		},
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route pattern and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// RecordRecompute records one similarity rewrite.
func RecordRecompute(mode string, duration time.Duration, edges int, err error) {
	RecomputeDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if err != nil {
		RecomputeFailures.WithLabelValues(mode).Inc()
		return
	}
	EdgesWritten.Add(float64(edges))
}

// RecordQuery records the duration of a read query.
func RecordQuery(operation string, duration time.Duration) {
	QueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAPIRequest records one served HTTP request. route is the method
// and chi route pattern, e.g. "GET /api/listings/{id}".
func RecordAPIRequest(route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
