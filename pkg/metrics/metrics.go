// Package metrics defines the Prometheus metric collectors used by the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	AutocompleteTotal    *prometheus.CounterVec
	AutocompleteLatency  *prometheus.HistogramVec
	SuggestionCount      prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	MoviesIndexedTotal   prometheus.Counter
	MoviesSkippedTotal   prometheus.Counter
	ViewsTotal           *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		AutocompleteTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autocomplete_queries_total",
				Help: "Total autocomplete queries by result type (prefix, trending, zero_result, error).",
			},
			[]string{"result_type"},
		),
		AutocompleteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autocomplete_latency_seconds",
				Help:    "Autocomplete latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SuggestionCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "autocomplete_suggestions_count",
				Help:    "Number of suggestions returned per query.",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		MoviesIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "movies_indexed_total",
				Help: "Total movies indexed.",
			},
		),
		MoviesSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "movies_skipped_total",
				Help: "Total movies skipped during indexing for missing id or title.",
			},
		),
		ViewsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movie_views_total",
				Help: "Total view events by delivery path (direct, kafka).",
			},
			[]string{"path"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AutocompleteTotal,
		m.AutocompleteLatency,
		m.SuggestionCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.MoviesIndexedTotal,
		m.MoviesSkippedTotal,
		m.ViewsTotal,
	)
	return m
}

// Handler returns the HTTP handler serving the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
