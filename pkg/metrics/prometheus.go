// Package metrics provides Prometheus metrics for the selection board service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Scoring
	compositesComputed prometheus.Counter
	scoringLatency     prometheus.Histogram
	scoringErrors      *prometheus.CounterVec
	submissions        prometheus.Counter
	submissionsReject  *prometheus.CounterVec
	leaderboardUpdates prometheus.Counter
	recomputeCoalesced prometheus.Counter

	// Board state
	openRounds      prometheus.Gauge
	totalCandidates prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryRecordsTotal  prometheus.Gauge
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueue           prometheus.Counter
	queueDequeue           prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	errorsByComponent *prometheus.CounterVec

	// Process
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

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "psb",
		subsystem:        "board",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.compositesComputed = m.counter("composites_computed_total", "Total number of candidate composites computed")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Time to compute one candidate composite")
	m.scoringErrors = m.counterVec("scoring_errors_total", "Scoring failures by error kind", "kind")
	m.submissions = m.counter("submissions_total", "Evaluator submissions accepted")
	m.submissionsReject = m.counterVec("submissions_rejected_total", "Evaluator submissions rejected by reason", "reason")
	m.leaderboardUpdates = m.counter("leaderboard_updates_total", "Leaderboard entries written by workers")
	m.recomputeCoalesced = m.counter("recompute_coalesced_total", "Recompute requests merged into one already pending")

	m.openRounds = m.gauge("open_rounds", "Rounds accepting scores")
	m.totalCandidates = m.gauge("candidates", "Candidates across all rounds")

	m.httpRequests = promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration by endpoint",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.repositoryRecordsTotal = m.gauge("repository_leaderboard_records", "Entries held in leaderboard caches")
	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Repository write latency")
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Repository read latency")

	m.queueSize = m.gauge("queue_size", "Recompute events waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Recompute queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size over capacity")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Recompute events enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Recompute events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Recompute events dropped on a full or closed queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Time an event spent queued")

	m.workerCount = m.gauge("worker_count", "Configured recompute workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers processing an event")
	m.workerIdleCount = m.gauge("worker_idle_count", "Workers waiting for an event")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time a worker spent on one event")
	m.workerErrors = m.counter("worker_errors_total", "Recompute events that failed")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Live goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Most recent GC pause")
}

// Scoring.

// RecordCompositeComputed counts one composite and its latency.
func RecordCompositeComputed(latencyMs float64) {
	globalManager.compositesComputed.Inc()
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoringError counts a scoring failure of the given kind.
func RecordScoringError(kind string) {
	globalManager.scoringErrors.WithLabelValues(kind).Inc()
}

// RecordSubmission counts an accepted evaluator submission.
func RecordSubmission() {
	globalManager.submissions.Inc()
}

// RecordSubmissionRejected counts a rejected evaluator submission.
func RecordSubmissionRejected(reason string) {
	globalManager.submissionsReject.WithLabelValues(reason).Inc()
}

// RecordLeaderboardUpdate counts a leaderboard write.
func RecordLeaderboardUpdate() {
	globalManager.leaderboardUpdates.Inc()
}

// RecordRecomputeCoalesced counts a recompute merged into a pending one.
func RecordRecomputeCoalesced() {
	globalManager.recomputeCoalesced.Inc()
}

// UpdateOpenRounds sets the number of open rounds.
func UpdateOpenRounds(count int) {
	globalManager.openRounds.Set(float64(count))
}

// UpdateTotalCandidates sets the number of candidates.
func UpdateTotalCandidates(count int) {
	globalManager.totalCandidates.Set(float64(count))
}

// HTTP.

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Repository.

// UpdateRepositoryRecordsTotal sets the number of cached leaderboard entries.
func UpdateRepositoryRecordsTotal(count int) {
	globalManager.repositoryRecordsTotal.Set(float64(count))
}

// RecordRepositoryUpdateLatency records a repository write latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records a repository read latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// Queue.

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueue.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError counts a dropped enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records how long an event waited in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Workers.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed event.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// Process.

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records a GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
