// Package metrics defines the Prometheus metric collectors used by the
// search service and exposes an HTTP handler for scraping.
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
	SearchesTotal        *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	SuggestionsTotal     prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	MessagesIndexedTotal prometheus.Counter
	IndexLatency         prometheus.Histogram
	IndexedTerms         prometheus.Gauge
	StoredMessages       prometheus.Gauge
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with the given
// registerer. Tests pass a private registry to avoid duplicate-registration
// panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
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
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searches_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		SuggestionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "suggestion_requests_total",
				Help: "Total autocomplete suggestion requests.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		MessagesIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "messages_indexed_total",
				Help: "Total messages indexed.",
			},
		),
		IndexLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_latency_seconds",
				Help:    "Message ingest latency in seconds, dominated by the durable store write.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		IndexedTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexed_terms",
				Help: "Number of distinct terms in the inverted index.",
			},
		),
		StoredMessages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stored_messages",
				Help: "Number of messages in the durable store.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.SuggestionsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.MessagesIndexedTotal,
		m.IndexLatency,
		m.IndexedTerms,
		m.StoredMessages,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
