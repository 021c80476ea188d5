// Package metrics provides Prometheus metrics for the covered-call screener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Breaker states as exported by the provider_breaker_state gauge.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// Manager manages all Prometheus metrics for the screener.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Provider metrics
	providerRequests        *prometheus.CounterVec
	providerRequestDuration *prometheus.HistogramVec
	providerRateLimitWait   prometheus.Histogram
	providerBreakerState    prometheus.Gauge

	// Screening metrics
	screeningRuns        *prometheus.CounterVec
	screeningRunDuration prometheus.Histogram
	symbolsScreened      prometheus.Counter
	symbolErrors         prometheus.Counter
	recordsProduced      prometheus.Histogram
	apiCallsPerRun       prometheus.Histogram

	// Store metrics
	storedRuns    prometheus.Gauge
	savedSymbols  prometheus.Gauge
	storeFailures *prometheus.CounterVec

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "covcall",
		subsystem:        "screener",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	countBuckets := prometheus.ExponentialBuckets(1, 2, 12)

	m.providerRequests = m.counterVec("provider_requests_total",
		"Market data requests by endpoint and outcome", "endpoint", "outcome")
	m.providerRequestDuration = m.histogramVec("provider_request_duration_milliseconds",
		"Market data request latency in milliseconds", "endpoint")
	m.providerRateLimitWait = m.histogram("provider_rate_limit_wait_milliseconds",
		"Time spent waiting for the provider rate limiter", m.histogramBuckets)
	m.providerBreakerState = m.gauge("provider_breaker_state",
		"Provider circuit breaker state (0 closed, 1 half-open, 2 open)")

	m.screeningRuns = m.counterVec("runs_total", "Screening runs by outcome", "outcome")
	m.screeningRunDuration = m.histogram("run_duration_milliseconds",
		"Screening run duration in milliseconds", m.histogramBuckets)
	m.symbolsScreened = m.counter("symbols_screened_total", "Symbols processed by the pipeline")
	m.symbolErrors = m.counter("symbol_errors_total", "Symbols whose expirations query failed")
	m.recordsProduced = m.histogram("records_per_run", "Records produced per screening run", countBuckets)
	m.apiCallsPerRun = m.histogram("api_calls_per_run", "Provider retrievals issued per screening run", countBuckets)

	m.storedRuns = m.gauge("stored_runs", "Runs held in the run store")
	m.savedSymbols = m.gauge("saved_symbols", "Symbols in the saved list")
	m.storeFailures = m.counterVec("store_failures_total", "Persistence failures by operation", "operation")

	m.queueSize = m.gauge("queue_size", "Symbol jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")

	m.workerActiveCount = m.gauge("worker_active_count", "Number of busy workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Per-symbol processing latency in milliseconds", m.histogramBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Total number of failed symbol jobs")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by HTTP endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordProviderRequest counts one market data request.
func RecordProviderRequest(endpoint, outcome string, durationMs float64) {
	globalManager.providerRequests.WithLabelValues(endpoint, outcome).Inc()
	globalManager.providerRequestDuration.WithLabelValues(endpoint).Observe(durationMs)
}

// RecordRateLimitWait records time blocked on the rate limiter.
func RecordRateLimitWait(waitMs float64) {
	globalManager.providerRateLimitWait.Observe(waitMs)
}

// UpdateBreakerState sets the breaker state gauge.
func UpdateBreakerState(state int) {
	globalManager.providerBreakerState.Set(float64(state))
}

// RecordScreeningRun records a finished pipeline run.
func RecordScreeningRun(outcome string, durationMs float64, records int, apiCalls int64) {
	globalManager.screeningRuns.WithLabelValues(outcome).Inc()
	globalManager.screeningRunDuration.Observe(durationMs)
	globalManager.recordsProduced.Observe(float64(records))
	globalManager.apiCallsPerRun.Observe(float64(apiCalls))
}

// RecordSymbolScreened counts a processed symbol.
func RecordSymbolScreened() {
	globalManager.symbolsScreened.Inc()
}

// RecordSymbolError counts a symbol-level retrieval failure.
func RecordSymbolError() {
	globalManager.symbolErrors.Inc()
}

// UpdateStoredRuns sets the run store size.
func UpdateStoredRuns(count int) {
	globalManager.storedRuns.Set(float64(count))
}

// UpdateSavedSymbols sets the saved symbol count.
func UpdateSavedSymbols(count int) {
	globalManager.savedSymbols.Set(float64(count))
}

// RecordStoreFailure counts a persistence failure.
func RecordStoreFailure(operation string) {
	globalManager.storeFailures.WithLabelValues(operation).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records per-job latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error by HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
