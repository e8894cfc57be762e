// Package metrics provides Prometheus metrics for the peer feedback service.
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

// Manager manages all Prometheus metrics for the peer feedback service.
type Manager struct {
	namespace       string
	subsystem       string
	enabled         bool
	refreshInterval time.Duration
	registry        prometheus.Registerer

	// Core business metrics
	assessmentsSubmitted prometheus.Counter
	assessmentsUpdated   prometheus.Counter
	assessmentsDuplicate prometheus.Counter
	assessmentsRejected  *prometheus.CounterVec
	submissionsThrottled prometheus.Counter
	summaryLatency       prometheus.Histogram
	progressQueries      prometheus.Counter
	loginAttempts        *prometheus.CounterVec

	// Admin report
	reportRefreshes       prometheus.Counter
	reportRefreshDuration prometheus.Histogram
	reportTargets         prometheus.Gauge
	reportLastUnix        prometheus.Gauge

	// Scale
	totalUsers       prometheus.Gauge
	totalAssessments prometheus.Gauge

	// HTTP performance
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryInsertLatency *prometheus.HistogramVec
	repositoryQueryLatency  *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "peerfeedback",
		subsystem:       "core",
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Init rebuilds the global manager from opts on a fresh registry. Call it once
// at startup, before handlers read GetRegistry.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// active returns the global manager, or nil when recording is disabled.
func active() *Manager {
	if m := globalManager; m.enabled {
		return m
	}
	return nil
}

// RefreshInterval is how often callers should push gauge values.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is on.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.DefBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.assessmentsSubmitted = m.counter("assessments_submitted_total", "Total number of assessments stored")
	m.assessmentsUpdated = m.counter("assessments_updated_total", "Total number of assessments that replaced an earlier rating")
	m.assessmentsDuplicate = m.counter("assessments_duplicate_total", "Total number of assessments rejected because the pair was already rated")
	m.assessmentsRejected = m.counterVec("assessments_rejected_total", "Total number of assessments rejected by validation", "reason")
	m.submissionsThrottled = m.counter("submissions_throttled_total", "Total number of submissions refused by the rate limiter")
	m.summaryLatency = m.histogram("summary_latency_milliseconds", "Histogram of per-target summary computation latency", prometheus.DefBuckets)
	m.progressQueries = m.counter("progress_queries_total", "Total number of progress computations")
	m.loginAttempts = m.counterVec("login_attempts_total", "Total number of login attempts by outcome", "outcome")

	m.reportRefreshes = m.counter("report_refreshes_total", "Total number of admin report recomputations")
	m.reportRefreshDuration = m.histogram("report_refresh_duration_milliseconds", "Admin report recomputation time", prometheus.DefBuckets)
	m.reportTargets = m.gauge("report_targets", "Number of employees in the last admin report")
	m.reportLastUnix = m.gauge("report_last_unix_seconds", "Unix time of the last admin report recomputation")

	m.totalUsers = m.gauge("users", "Number of users known to the store")
	m.totalAssessments = m.gauge("assessments", "Number of assessments held by the store")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.repositoryInsertLatency = m.histogramVec("repository_insert_latency_milliseconds", "Store write latency by backend", "backend")
	m.repositoryQueryLatency = m.histogramVec("repository_query_latency_milliseconds", "Store read latency by backend and operation", "backend", "operation")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Business metrics.

// RecordAssessmentSubmitted increments the stored assessments counter.
func RecordAssessmentSubmitted() {
	m := active()
	if m == nil {
		return
	}
	m.assessmentsSubmitted.Inc()
}

// RecordAssessmentUpdated counts an assessment that replaced an earlier one.
func RecordAssessmentUpdated() {
	m := active()
	if m == nil {
		return
	}
	m.assessmentsUpdated.Inc()
}

// RecordAssessmentDuplicate counts a rejected duplicate pair.
func RecordAssessmentDuplicate() {
	m := active()
	if m == nil {
		return
	}
	m.assessmentsDuplicate.Inc()
}

// RecordAssessmentRejected counts a submission that failed validation.
func RecordAssessmentRejected(reason string) {
	m := active()
	if m == nil {
		return
	}
	m.assessmentsRejected.WithLabelValues(reason).Inc()
}

// RecordSubmissionThrottled counts a submission refused by rate limiting.
func RecordSubmissionThrottled() {
	m := active()
	if m == nil {
		return
	}
	m.submissionsThrottled.Inc()
}

// RecordSummaryLatency records summary computation latency in milliseconds.
func RecordSummaryLatency(latencyMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.summaryLatency.Observe(latencyMs)
}

// RecordProgressQuery counts a progress computation.
func RecordProgressQuery() {
	m := active()
	if m == nil {
		return
	}
	m.progressQueries.Inc()
}

// RecordLoginAttempt counts a login by outcome ("success", "invalid", "error").
func RecordLoginAttempt(outcome string) {
	m := active()
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

// RecordReportRefresh records one admin report recomputation.
func RecordReportRefresh(durationMs float64, targets int) {
	m := active()
	if m == nil {
		return
	}
	m.reportRefreshes.Inc()
	m.reportRefreshDuration.Observe(durationMs)
	m.reportTargets.Set(float64(targets))
	m.reportLastUnix.Set(float64(time.Now().Unix()))
}

// UpdateTotals sets the user and assessment gauges.
func UpdateTotals(users, assessments int) {
	m := active()
	if m == nil {
		return
	}
	m.totalUsers.Set(float64(users))
	m.totalAssessments.Set(float64(assessments))
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	m := active()
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	m := active()
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Repository metrics.

// RecordRepositoryInsertLatency records a store write in milliseconds.
func RecordRepositoryInsertLatency(backend string, latencyMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.repositoryInsertLatency.WithLabelValues(backend).Observe(latencyMs)
}

// RecordRepositoryQueryLatency records a store read in milliseconds.
func RecordRepositoryQueryLatency(backend, operation string, latencyMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.repositoryQueryLatency.WithLabelValues(backend, operation).Observe(latencyMs)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	m := active()
	if m == nil {
		return
	}
	m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	m := active()
	if m == nil {
		return
	}
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	m := active()
	if m == nil {
		return
	}
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	m := active()
	if m == nil {
		return
	}
	m.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	m := active()
	if m == nil {
		return
	}
	m.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.systemGCPauseTime.Observe(pauseMs)
}

// SystemRefreshInterval is how often system gauges should be pushed.
func SystemRefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
