// Package metrics holds the process-wide Prometheus collectors for the
// resolution pipeline. Collectors register on the default registry so any
// package can record without plumbing a registry through constructors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts served requests by method, route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menulens_http_requests_total",
		Help: "HTTP requests served, labeled by method, route and status.",
	}, []string{"method", "route", "status"})

	// Resolutions counts terminal item outcomes by source
	// (cached, semantic, search, generated, placeholder).
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menulens_resolutions_total",
		Help: "Menu items resolved, labeled by the source that settled them.",
	}, []string{"source"})

	// StageDuration observes wall time per pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "menulens_stage_duration_seconds",
		Help:    "Duration of each resolution stage.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"stage"})

	// DBQueryDuration observes inline query wall time by audit marker.
	DBQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "menulens_db_query_duration_seconds",
		Help:    "Duration of database queries, labeled by audit marker.",
		Buckets: prometheus.DefBuckets,
	}, []string{"marker"})

	// GenerationRetries counts generation retry sleeps by cause
	// (rate_limit, transient).
	GenerationRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menulens_generation_retries_total",
		Help: "Image generation retries, labeled by backoff cause.",
	}, []string{"kind"})

	// SearchRequests counts outbound image search calls by pass
	// (strict, loose).
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menulens_search_requests_total",
		Help: "Image search API calls, labeled by query pass.",
	}, []string{"pass"})

	// CacheStores counts cache write attempts by outcome
	// (stored, deduplicated, failed).
	CacheStores = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menulens_cache_store_total",
		Help: "Dish image cache writes, labeled by outcome.",
	}, []string{"outcome"})
)

// Handler exposes the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
