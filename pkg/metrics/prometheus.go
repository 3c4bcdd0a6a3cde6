// Package metrics provides Prometheus metrics for the armory service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the armory service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Feedback Metrics - submissions and the transaction primitive
	submitsTotal        *prometheus.CounterVec
	submitErrors        *prometheus.CounterVec
	transactionRetries  prometheus.Counter
	transactionFailures prometheus.Counter
	storeErrors         *prometheus.CounterVec

	// Subscription / Presence Metrics
	subscriberCount prometheus.Gauge
	hubPublished    prometheus.Counter
	hubDropped      prometheus.Counter
	presenceOnline  prometheus.Gauge
	totalVisits     prometheus.Gauge
	wsConnections   prometheus.Gauge

	// Resolution Pipeline Metrics
	resolveDuration prometheus.Histogram
	resolvedOffers  prometheus.Gauge
	datasetLoads    prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "armory",
		subsystem:        "feedback",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.submitsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submits_total",
		Help:      "Feedback submissions applied, by kind",
	}, []string{"kind"})

	m.submitErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submit_errors_total",
		Help:      "Feedback submissions that failed at the store, by kind",
	}, []string{"kind"})

	m.transactionRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transaction_retries_total",
		Help:      "Compare-and-retry transaction attempts that hit a conflicting writer",
	})

	m.transactionFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transaction_failures_total",
		Help:      "Transactions abandoned after exhausting the retry budget or on store errors",
	})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Shared store operation errors, by operation",
	}, []string{"operation"})

	m.subscriberCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscribers",
		Help:      "Active aggregate subscriptions across all keys",
	})

	m.hubPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hub_published_total",
		Help:      "Snapshots delivered to subscriber channels",
	})

	m.hubDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hub_dropped_total",
		Help:      "Snapshots skipped because a subscriber buffer was full",
	})

	m.presenceOnline = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "presence_online",
		Help:      "Live presence markers for the global stats entity",
	})

	m.totalVisits = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_visits",
		Help:      "Session-deduplicated total visit counter as last observed",
	})

	m.wsConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ws_connections",
		Help:      "Open websocket connections",
	})

	m.resolveDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolve_duration_milliseconds",
		Help:      "Offer resolution pipeline duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.resolvedOffers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolved_offers",
		Help:      "Offers produced by the last pipeline run",
	})

	m.datasetLoads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dataset_loads_total",
		Help:      "Raw datasets accepted",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests, by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordSubmit increments the applied submissions counter for a kind.
func RecordSubmit(kind string) {
	globalManager.submitsTotal.WithLabelValues(kind).Inc()
}

// RecordSubmitError increments the failed submissions counter for a kind.
func RecordSubmitError(kind string) {
	globalManager.submitErrors.WithLabelValues(kind).Inc()
}

// RecordTransactionRetry increments the conflict-retry counter.
func RecordTransactionRetry() {
	globalManager.transactionRetries.Inc()
}

// RecordTransactionFailure increments the abandoned-transaction counter.
func RecordTransactionFailure() {
	globalManager.transactionFailures.Inc()
}

// RecordStoreError increments the store error counter for an operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// UpdateSubscriberCount sets the active subscription gauge.
func UpdateSubscriberCount(count int) {
	globalManager.subscriberCount.Set(float64(count))
}

// RecordHubPublish increments the delivered snapshot counter.
func RecordHubPublish() {
	globalManager.hubPublished.Inc()
}

// RecordHubDrop increments the skipped snapshot counter.
func RecordHubDrop() {
	globalManager.hubDropped.Inc()
}

// UpdatePresenceOnline sets the live presence gauge.
func UpdatePresenceOnline(count int64) {
	globalManager.presenceOnline.Set(float64(count))
}

// UpdateTotalVisits sets the last observed total visit counter.
func UpdateTotalVisits(count int64) {
	globalManager.totalVisits.Set(float64(count))
}

// UpdateWSConnections sets the open websocket gauge.
func UpdateWSConnections(count int) {
	globalManager.wsConnections.Set(float64(count))
}

// RecordResolveDuration records one pipeline run in milliseconds.
func RecordResolveDuration(durationMs float64) {
	globalManager.resolveDuration.Observe(durationMs)
}

// UpdateResolvedOffers sets the last pipeline output size.
func UpdateResolvedOffers(count int) {
	globalManager.resolvedOffers.Set(float64(count))
}

// RecordDatasetLoad increments the accepted dataset counter.
func RecordDatasetLoad() {
	globalManager.datasetLoads.Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
