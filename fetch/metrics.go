package fetch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the ingestion pipeline.
type Metrics struct {
	Registry            *prometheus.Registry
	PagesTotal          *prometheus.CounterVec
	PageDuration        prometheus.Histogram
	RecordsFetchedTotal *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec
	IngestDuration      prometheus.Histogram
	CacheRequestsTotal  *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_pages_fetched_total",
			Help: "Total collection pages fetched, by source.",
		},
		[]string{"source"},
	)
	pageDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregator_page_fetch_duration_seconds",
			Help:    "HTTP latency for collection page fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_records_fetched_total",
			Help: "Total records fetched, by source.",
		},
		[]string{"source"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_fetch_errors_total",
			Help: "Total collection fetch errors by type.",
		},
		[]string{"error_type"},
	)
	ingestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregator_ingest_duration_seconds",
			Help:    "Wall time of full ingestion passes.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
	cacheRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_cache_requests_total",
			Help: "Dataset cache requests by outcome (hit, miss, refresh).",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(pages, pageDuration, records, errorsTotal, ingestDuration, cacheRequests)

	return &Metrics{
		Registry:            registry,
		PagesTotal:          pages,
		PageDuration:        pageDuration,
		RecordsFetchedTotal: records,
		ErrorsTotal:         errorsTotal,
		IngestDuration:      ingestDuration,
		CacheRequestsTotal:  cacheRequests,
	}
}

// IncPage increments the page counter for a source.
func (m *Metrics) IncPage(source string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(source).Inc()
}

// ObservePageDuration records one page fetch latency.
func (m *Metrics) ObservePageDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.PageDuration.Observe(d.Seconds())
}

// AddRecords counts records fetched from a source.
func (m *Metrics) AddRecords(source string, n int) {
	if m == nil {
		return
	}
	m.RecordsFetchedTotal.WithLabelValues(source).Add(float64(n))
}

// IncError increments the error counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObserveIngestDuration records the wall time of a full ingestion pass.
func (m *Metrics) ObserveIngestDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.IngestDuration.Observe(d.Seconds())
}

// IncCacheRequest counts a cache request outcome.
func (m *Metrics) IncCacheRequest(outcome string) {
	if m == nil {
		return
	}
	m.CacheRequestsTotal.WithLabelValues(outcome).Inc()
}
