// Package metrics provides Prometheus metrics for the office-hours scheduling front-end.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by run and upload counters.
const (
	OutcomeSuccess     = "success"
	OutcomeConfigError = "config_error"
	OutcomeEngineError = "engine_error"
	OutcomeError       = "error"
	OutcomeSkipped     = "skipped"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         prometheus.Counter

	// Scheduler Metrics
	schedulerRuns        *prometheus.CounterVec
	schedulerRunDuration prometheus.Histogram
	activeRuns           prometheus.Gauge

	// Usage telemetry
	usageUploads *prometheus.CounterVec

	// Filesystem housekeeping
	cleanupErrors prometheus.Counter
	outputsPruned prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// runDurationBuckets spans quick validation failures up to multi-minute solver runs.
var runDurationBuckets = []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000, 300000}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "oh_sched",
		subsystem:        "web",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rate_limited_total",
		Help:      "Total number of scheduling requests rejected by the run limiter",
	})

	m.schedulerRuns = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "scheduler_runs_total",
			Help:      "Total number of scheduling runs by outcome",
		},
		[]string{"outcome"},
	)

	m.schedulerRunDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scheduler_run_duration_milliseconds",
		Help:      "Wall time of external scheduler invocations in milliseconds",
		Buckets:   runDurationBuckets,
	})

	m.activeRuns = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_runs",
		Help:      "Number of scheduling runs currently in progress",
	})

	m.usageUploads = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "usage_uploads_total",
			Help:      "Total number of usage record uploads by outcome",
		},
		[]string{"outcome"},
	)

	m.cleanupErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cleanup_errors_total",
		Help:      "Total number of scratch directories that could not be removed",
	})

	m.outputsPruned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "outputs_pruned_total",
		Help:      "Total number of expired run output directories removed",
	})
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited increments the run limiter rejection counter.
func RecordRateLimited() {
	globalManager.rateLimited.Inc()
}

// Scheduler Metrics Functions.

// RecordSchedulerRun counts a finished run with the given outcome.
func RecordSchedulerRun(outcome string) {
	globalManager.schedulerRuns.WithLabelValues(outcome).Inc()
}

// RecordSchedulerRunDuration records the external scheduler wall time.
func RecordSchedulerRunDuration(durationMs float64) {
	globalManager.schedulerRunDuration.Observe(durationMs)
}

// IncActiveRuns marks a run as started.
func IncActiveRuns() {
	globalManager.activeRuns.Inc()
}

// DecActiveRuns marks a run as finished.
func DecActiveRuns() {
	globalManager.activeRuns.Dec()
}

// Usage Metrics Functions.

// RecordUsageUpload counts a usage record upload attempt with the given outcome.
func RecordUsageUpload(outcome string) {
	globalManager.usageUploads.WithLabelValues(outcome).Inc()
}

// Housekeeping Metrics Functions.

// RecordCleanupError increments the scratch cleanup failure counter.
func RecordCleanupError() {
	globalManager.cleanupErrors.Inc()
}

// RecordOutputsPruned adds n removed run directories.
func RecordOutputsPruned(n int) {
	globalManager.outputsPruned.Add(float64(n))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Runs exposes the run counter for tests and diagnostics.
func Runs() *prometheus.CounterVec { return globalManager.schedulerRuns }

// UsageUploads exposes the usage upload counter for tests and diagnostics.
func UsageUploads() *prometheus.CounterVec { return globalManager.usageUploads }

// RateLimited exposes the limiter rejection counter for tests and diagnostics.
func RateLimited() prometheus.Counter { return globalManager.rateLimited }
