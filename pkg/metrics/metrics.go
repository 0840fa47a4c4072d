package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Reconciliation metrics
	AggregationPasses   prometheus.Counter
	AggregationDuration prometheus.Histogram
	AggregatedAds       prometheus.Histogram
	MatchResults        *prometheus.CounterVec
	LinksApplied        *prometheus.CounterVec
	LinkFileFailures    prometheus.Counter

	// Import metrics
	ImportRecords *prometheus.CounterVec

	// Analysis metrics
	CacheLookups       *prometheus.CounterVec
	CacheWriteFailures prometheus.Counter
	AnalyzerCalls      *prometheus.CounterVec
	AnalyzerDuration   prometheus.Histogram

	// Storage metrics
	StorageOperations *prometheus.CounterVec
	StorageDuration   *prometheus.HistogramVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		AggregationPasses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "aggregation_passes_total",
				Help: "Total number of aggregation passes over performance records",
			},
		),

		AggregationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aggregation_duration_seconds",
				Help:    "Aggregation pass duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),

		AggregatedAds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aggregated_ads",
				Help:    "Number of distinct ads produced by an aggregation pass",
				Buckets: []float64{0, 1, 10, 50, 100, 500, 1000},
			},
		),

		MatchResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creative_match_results_total",
				Help: "Creative matching outcomes by strategy",
			},
			[]string{"strategy"},
		),

		LinksApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creative_links_applied_total",
				Help: "Ads linked to a creative by operator action",
			},
			[]string{"mode"},
		),

		LinkFileFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "creative_link_file_failures_total",
				Help: "Files that could not be read or hashed during linking",
			},
		),

		ImportRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_records_total",
				Help: "Performance records seen during spreadsheet import",
			},
			[]string{"status"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analysis_cache_lookups_total",
				Help: "Analysis cache lookups by result",
			},
			[]string{"result"},
		),

		CacheWriteFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "analysis_cache_write_failures_total",
				Help: "Analysis results that could not be cached",
			},
		),

		AnalyzerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analyzer_calls_total",
				Help: "Calls to the creative analyzer by status",
			},
			[]string{"status"},
		),

		AnalyzerDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "analyzer_duration_seconds",
				Help:    "Creative analyzer call duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120},
			},
		),

		StorageOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_operations_total",
				Help: "Key-value storage operations",
			},
			[]string{"operation", "table", "status"},
		),

		StorageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storage_operation_duration_seconds",
				Help:    "Key-value storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *Metrics) RecordAggregation(ads int, duration time.Duration) {
	m.AggregationPasses.Inc()
	m.AggregatedAds.Observe(float64(ads))
	m.AggregationDuration.Observe(duration.Seconds())
}

// strategy is manual_hash, substring or none
func (m *Metrics) RecordMatch(strategy string) {
	m.MatchResults.WithLabelValues(strategy).Inc()
}

func (m *Metrics) RecordLinks(mode string, count int) {
	m.LinksApplied.WithLabelValues(mode).Add(float64(count))
}

func (m *Metrics) RecordLinkFileFailure() {
	m.LinkFileFailures.Inc()
}

func (m *Metrics) RecordImport(status string, count int) {
	m.ImportRecords.WithLabelValues(status).Add(float64(count))
}

// result is hit, miss, expired or error
func (m *Metrics) RecordCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordCacheWriteFailure() {
	m.CacheWriteFailures.Inc()
}

func (m *Metrics) RecordAnalyzerCall(status string, duration time.Duration) {
	m.AnalyzerCalls.WithLabelValues(status).Inc()
	m.AnalyzerDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordStorage(operation, table, status string, duration time.Duration) {
	m.StorageOperations.WithLabelValues(operation, table, status).Inc()
	m.StorageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
