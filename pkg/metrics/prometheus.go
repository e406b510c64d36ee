// Package metrics provides Prometheus metrics for the topicsink ingestion service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// defaultLatencyBucketsMS spans sub-millisecond local inserts up to the
// default insert timeout.
var defaultLatencyBucketsMS = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // read-only

// Insert outcomes used as the "result" label.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Manager manages all Prometheus metrics for the topicsink service.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	refreshInterval time.Duration
	constLabels     prometheus.Labels
	registry        prometheus.Registerer

	// Ingestion metrics
	messagesReceived   prometheus.Counter
	messagesHandled    prometheus.Counter
	messagesClassified *prometheus.CounterVec
	topicsRejected     prometheus.Counter
	sinkActive         prometheus.Gauge

	// Store metrics
	inserts       *prometheus.CounterVec
	insertLatency prometheus.Histogram

	// Dispatch queue metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueDropped     *prometheus.CounterVec

	// Worker metrics
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Broker connection metrics
	brokerConnected   prometheus.Gauge
	brokerReconnects  prometheus.Counter
	brokerConnectLost prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "topicsink",
		subsystem:       "ingest",
		latencyBuckets:  defaultLatencyBucketsMS,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval returns how often process gauges should be sampled.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// RefreshInterval returns the global manager's sampling interval.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.messagesReceived = auto.NewCounter(m.counterOpts("messages_received_total",
		"Total number of messages received from the broker"))
	m.messagesHandled = auto.NewCounter(m.counterOpts("messages_handled_total",
		"Total number of messages classified and persisted"))
	m.messagesClassified = auto.NewCounterVec(m.counterOpts("messages_classified_total",
		"Messages by inferred payload kind"), []string{"kind"})
	m.topicsRejected = auto.NewCounter(m.counterOpts("topics_rejected_total",
		"Messages dropped because the topic is not a valid collection name"))
	m.sinkActive = auto.NewGauge(m.gaugeOpts("sink_active",
		"1 when the document sink is configured and connected, 0 otherwise"))

	m.inserts = auto.NewCounterVec(m.counterOpts("inserts_total",
		"Document inserts by result"), []string{"result"})
	m.insertLatency = auto.NewHistogram(m.histogramOpts("insert_latency_milliseconds",
		"Document insert round-trip latency in milliseconds", m.latencyBuckets))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size",
		"Current number of messages waiting for a worker"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity",
		"Maximum dispatch queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio",
		"Dispatch queue utilization ratio (size / capacity)"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total",
		"Total number of messages enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total",
		"Total number of messages dequeued"))
	m.queueDropped = auto.NewCounterVec(m.counterOpts("queue_dropped_total",
		"Messages dropped before dispatch by reason"), []string{"reason"})

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count",
		"Number of dispatch workers"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Per-message handling latency in milliseconds", m.latencyBuckets))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total",
		"Total number of messages a worker failed to handle"))

	m.brokerConnected = auto.NewGauge(m.gaugeOpts("broker_connected",
		"1 while the MQTT client is connected"))
	m.brokerReconnects = auto.NewCounter(m.counterOpts("broker_connects_total",
		"Total number of successful broker (re)connections"))
	m.brokerConnectLost = auto.NewCounter(m.counterOpts("broker_connection_lost_total",
		"Total number of lost broker connections"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.latencyBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Total number of errors by component"), []string{"component", "error_type"})
	m.errorsByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total",
		"Total number of errors by type"), []string{"error_type", "severity"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes",
		"Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count",
		"Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordMessageReceived increments the received messages counter.
func RecordMessageReceived() {
	globalManager.messagesReceived.Inc()
}

// RecordMessageHandled increments the handled messages counter.
func RecordMessageHandled() {
	globalManager.messagesHandled.Inc()
}

// RecordMessageClassified counts a message under its inferred kind.
func RecordMessageClassified(kind string) {
	globalManager.messagesClassified.WithLabelValues(kind).Inc()
}

// RecordTopicRejected counts a message dropped by the collection-name policy.
func RecordTopicRejected() {
	globalManager.topicsRejected.Inc()
}

// UpdateSinkActive records whether the sink is active.
func UpdateSinkActive(active bool) {
	if active {
		globalManager.sinkActive.Set(1)
		return
	}
	globalManager.sinkActive.Set(0)
}

// RecordInsert counts an insert outcome and observes its latency.
func RecordInsert(result string, latencyMs float64) {
	globalManager.inserts.WithLabelValues(result).Inc()
	globalManager.insertLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
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

// RecordQueueDrop counts a message dropped before dispatch.
func RecordQueueDrop(reason string) {
	globalManager.queueDropped.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateBrokerConnected records the broker connection state.
func UpdateBrokerConnected(connected bool) {
	if connected {
		globalManager.brokerConnected.Set(1)
		globalManager.brokerReconnects.Inc()
		return
	}
	globalManager.brokerConnected.Set(0)
	globalManager.brokerConnectLost.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
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
