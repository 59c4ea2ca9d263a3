// Package metrics provides Prometheus metrics for the clicker service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 5 * time.Second
)

// Latency buckets in milliseconds, tuned for sub-second I/O jobs.
var defaultLatencyBuckets = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // shared bucket layout

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Scoring
	clicksRecorded *prometheus.CounterVec
	clicksRejected *prometheus.CounterVec
	clicksDeleted  prometheus.Counter
	flashes        *prometheus.CounterVec

	// Replay
	replayTicks   prometheus.Counter
	replayResets  *prometheus.CounterVec
	replaysActive prometheus.Gauge

	// Documents
	imports   *prometheus.CounterVec
	publishes *prometheus.CounterVec
	queries   *prometheus.CounterVec
	exports   *prometheus.CounterVec

	// Async I/O
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors prometheus.Counter
	jobLatency         *prometheus.HistogramVec
	workerCount        prometheus.Gauge
	storedDocuments    prometheus.Gauge

	// Transport
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	wsClients           prometheus.Gauge
	sessions            prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // avoids default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "clicker",
		subsystem:        "core",
		histogramBuckets: defaultLatencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.clicksRecorded = m.counterVec("clicks_recorded_total", "Clicks applied to a ledger, by sign", "sign")
	m.clicksRejected = m.counterVec("clicks_rejected_total", "Clicks dropped by the capture guard, by reason", "reason")
	m.clicksDeleted = m.counter("clicks_deleted_total", "Entries removed from a ledger by explicit delete")
	m.flashes = m.counterVec("flashes_total", "Flash side effects fired, by origin and sign", "origin", "sign")

	m.replayTicks = m.counter("replay_ticks_total", "Replay scheduler ticks evaluated while playing")
	m.replayResets = m.counterVec("replay_resets_total", "Replay cursor invalidations, by kind", "kind")
	m.replaysActive = m.gauge("replays_active", "Replay runners currently armed")

	m.imports = m.counterVec("imports_total", "Score document imports, by outcome", "outcome")
	m.publishes = m.counterVec("publishes_total", "Score document publishes, by outcome", "outcome")
	m.queries = m.counterVec("queries_total", "Score document lookups by hash, by outcome", "outcome")
	m.exports = m.counterVec("exports_total", "Score document exports, by sink and outcome", "sink", "outcome")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the async I/O queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the async I/O queue")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by the async I/O queue")
	m.jobLatency = m.histogramVec("job_latency_milliseconds", "Async I/O job latency in milliseconds", "kind")
	m.workerCount = m.gauge("worker_count", "Async I/O workers running")
	m.storedDocuments = m.gauge("stored_documents", "Score documents held by the in-memory store")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.wsClients = m.gauge("ws_clients", "Connected live session websocket clients")
	m.sessions = m.gauge("sessions_active", "Live scoring sessions")
}

// RecordClick counts a click applied to a ledger.
func RecordClick(sign string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.clicksRecorded.WithLabelValues(sign).Inc()
	}
}

// RecordClickRejected counts a click dropped by the capture guard.
func RecordClickRejected(reason string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.clicksRejected.WithLabelValues(reason).Inc()
	}
}

// RecordClickDeleted counts an explicit entry delete.
func RecordClickDeleted() {
	if globalManager != nil && globalManager.enabled {
		globalManager.clicksDeleted.Inc()
	}
}

// RecordFlash counts a flash. Origin is "capture" or "replay".
func RecordFlash(origin, sign string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.flashes.WithLabelValues(origin, sign).Inc()
	}
}

// RecordReplayTick counts one evaluated replay tick.
func RecordReplayTick() {
	if globalManager != nil && globalManager.enabled {
		globalManager.replayTicks.Inc()
	}
}

// RecordReplayReset counts a cursor invalidation ("seek" or "exhausted").
func RecordReplayReset(kind string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.replayResets.WithLabelValues(kind).Inc()
	}
}

// AddActiveReplays moves the armed replay gauge by delta.
func AddActiveReplays(delta int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.replaysActive.Add(float64(delta))
	}
}

// RecordImport counts an import attempt by outcome.
func RecordImport(outcome string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.imports.WithLabelValues(outcome).Inc()
	}
}

// RecordPublish counts a publish attempt by outcome.
func RecordPublish(outcome string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.publishes.WithLabelValues(outcome).Inc()
	}
}

// RecordQuery counts a lookup by hash by outcome.
func RecordQuery(outcome string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.queries.WithLabelValues(outcome).Inc()
	}
}

// RecordExport counts an export by sink and outcome.
func RecordExport(sink, outcome string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.exports.WithLabelValues(sink, outcome).Inc()
	}
}

// UpdateQueueSize sets the async queue depth.
func UpdateQueueSize(size int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateStoredDocuments sets the number of documents in the memory store.
func UpdateStoredDocuments(n int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.storedDocuments.Set(float64(n))
	}
}

// UpdateQueueCapacity sets the async queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError() {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// RecordJobLatency observes how long a job took.
func RecordJobLatency(kind string, latencyMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.jobLatency.WithLabelValues(kind).Observe(latencyMs)
	}
}

// UpdateWorkerCount sets the worker gauge.
func UpdateWorkerCount(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// AddWSClients moves the websocket client gauge by delta.
func AddWSClients(delta int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.wsClients.Add(float64(delta))
	}
}

// AddSessions moves the live session gauge by delta.
func AddSessions(delta int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.sessions.Add(float64(delta))
	}
}

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval is how often callers should refresh polled gauges.
func RefreshInterval() time.Duration {
	if globalManager == nil {
		return defaultRefreshInterval
	}
	return globalManager.refreshInterval
}
