package metrics

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the rating service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Rating metrics
	matchesReceived  prometheus.Counter
	matchesDuplicate prometheus.Counter
	matchesRejected  *prometheus.CounterVec
	matchesRated     prometheus.Counter
	matchesNoOp      prometheus.Counter
	ratingLatency    prometheus.Histogram
	pmrDelta         prometheus.Histogram
	reliability      prometheus.Histogram
	playersTotal     prometheus.Gauge

	// Queue metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Repository metrics
	repositoryRecordsTotal  prometheus.Gauge
	repositoryHistoryTotal  prometheus.Counter
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Stream metrics
	streamClients prometheus.Gauge
	streamDropped prometheus.Counter

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry, isolated from the default registerer.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
	customRegistry.MustRegister(collectors.NewGoCollector())
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pmr",
		subsystem:        "rating",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.matchesReceived = auto.NewCounter(m.counter("matches_received_total", "Matches accepted for rating"))
	m.matchesDuplicate = auto.NewCounter(m.counter("matches_duplicate_total", "Matches dropped as duplicates"))
	m.matchesRejected = auto.NewCounterVec(m.counter("matches_rejected_total", "Matches rejected before or during rating"), []string{"reason"})
	m.matchesRated = auto.NewCounter(m.counter("matches_rated_total", "Matches that changed player ratings"))
	m.matchesNoOp = auto.NewCounter(m.counter("matches_noop_total", "Matches left unrated for lack of played sets"))
	m.ratingLatency = auto.NewHistogram(m.histogram("rating_latency_milliseconds", "Time to load, rate and store one match", m.histogramBuckets))
	m.pmrDelta = auto.NewHistogram(m.histogram("pmr_delta_abs", "Absolute PMR change per player per match",
		[]float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 1}))
	m.reliability = auto.NewHistogram(m.histogram("reliability", "Player reliability after a rated match",
		prometheus.LinearBuckets(10, 10, 10)))
	m.playersTotal = auto.NewGauge(m.gauge("players_total", "Players with a stored rating"))

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Matches waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gauge("queue_utilization_ratio", "Queue fill ratio between 0 and 1"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueued_total", "Matches enqueued"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeued_total", "Matches dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total", "Enqueue attempts rejected by a full or closed queue"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogram("queue_processing_latency_milliseconds", "Time between enqueue and dequeue", m.histogramBuckets))

	m.workerCount = auto.NewGauge(m.gauge("worker_count", "Rating workers started"))
	m.workerActiveCount = auto.NewGauge(m.gauge("worker_active_count", "Workers currently rating a match"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogram("worker_processing_latency_milliseconds", "Time a worker spends on one match", m.histogramBuckets))
	m.workerErrors = auto.NewCounter(m.counter("worker_errors_total", "Matches a worker failed to rate"))

	m.repositoryRecordsTotal = auto.NewGauge(m.gauge("repository_records_total", "Players held by the store"))
	m.repositoryHistoryTotal = auto.NewCounter(m.counter("repository_history_entries_total", "History entries appended"))
	m.repositoryUpdateLatency = auto.NewHistogram(m.histogram("repository_update_latency_milliseconds", "Store write latency", m.histogramBuckets))
	m.repositoryQueryLatency = auto.NewHistogram(m.histogram("repository_query_latency_milliseconds", "Store read latency", m.histogramBuckets))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.streamClients = auto.NewGauge(m.gauge("stream_clients", "Connected websocket clients"))
	m.streamDropped = auto.NewCounter(m.counter("stream_dropped_total", "Websocket clients dropped for falling behind"))

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"})
}

// Rating metrics functions.

// RecordMatchReceived increments the accepted matches counter.
func RecordMatchReceived() {
	globalManager.matchesReceived.Inc()
}

// RecordMatchDuplicate increments the duplicate matches counter.
func RecordMatchDuplicate() {
	globalManager.matchesDuplicate.Inc()
}

// RecordMatchRejected counts a rejected match by reason.
func RecordMatchRejected(reason string) {
	globalManager.matchesRejected.WithLabelValues(reason).Inc()
}

// RecordMatchRated counts a rated match and observes each player's change.
func RecordMatchRated(deltas []float64, reliabilities []float64) {
	globalManager.matchesRated.Inc()
	for _, d := range deltas {
		globalManager.pmrDelta.Observe(math.Abs(d))
	}
	for _, r := range reliabilities {
		globalManager.reliability.Observe(r)
	}
}

// RecordMatchNoOp increments the unrated matches counter.
func RecordMatchNoOp() {
	globalManager.matchesNoOp.Inc()
}

// RecordRatingLatency records the latency of one rating in milliseconds.
func RecordRatingLatency(latencyMs float64) {
	globalManager.ratingLatency.Observe(latencyMs)
}

// UpdatePlayersTotal sets the number of rated players.
func UpdatePlayersTotal(count int) {
	globalManager.playersTotal.Set(float64(count))
}

// Queue metrics functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records time spent queued in milliseconds.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker metrics functions.

// UpdateWorkerCount sets the number of started workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// IncWorkerActive marks one more worker busy.
func IncWorkerActive() {
	globalManager.workerActiveCount.Inc()
}

// DecWorkerActive marks one worker idle again.
func DecWorkerActive() {
	globalManager.workerActiveCount.Dec()
}

// RecordWorkerProcessingLatency records one match's processing time in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Repository metrics functions.

// UpdateRepositoryRecordsTotal sets the number of stored players.
func UpdateRepositoryRecordsTotal(count int) {
	globalManager.repositoryRecordsTotal.Set(float64(count))
}

// RecordRepositoryHistory counts appended history entries.
func RecordRepositoryHistory(n int) {
	globalManager.repositoryHistoryTotal.Add(float64(n))
}

// RecordRepositoryUpdateLatency records store write latency in milliseconds.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records store read latency in milliseconds.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// HTTP metrics functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Stream metrics functions.

// UpdateStreamClients sets the number of connected stream clients.
func UpdateStreamClients(count int) {
	globalManager.streamClients.Set(float64(count))
}

// RecordStreamDropped counts a client dropped for a full send buffer.
func RecordStreamDropped() {
	globalManager.streamDropped.Inc()
}

// RecordErrorByComponent counts an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
