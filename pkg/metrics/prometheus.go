// Package metrics provides Prometheus metrics for the scoreboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric the scoreboard exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scan ingestion
	scansIngested  prometheus.Counter
	scansDuplicate prometheus.Counter
	scansRejected  *prometheus.CounterVec
	scansStale     prometheus.Counter
	scanLatency    prometheus.Histogram

	// Judge edits
	savesCommitted prometheus.Counter
	savesFailed    prometheus.Counter
	saveConflicts  prometheus.Counter
	bufferedEdits  prometheus.Gauge

	// Topology
	reconcileRuns   prometheus.Counter
	reconcileWrites *prometheus.CounterVec

	// Bulk roster mutations
	batchChunks *prometheus.CounterVec
	batchTeams  *prometheus.CounterVec

	// Ranking
	rankingLatency prometheus.Histogram
	teamsTotal     prometheus.Gauge

	// Queue and workers
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueEnqueueErrs prometheus.Counter
	workerCount      prometheus.Gauge
	workerLatency    prometheus.Histogram
	workerErrors     prometheus.Counter

	// Store
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scoreboard",
		subsystem:        "engine",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
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

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.scansIngested = m.counter("scans_ingested_total", "Checkpoint scans applied to the store")
	m.scansDuplicate = m.counter("scans_duplicate_total", "Scan events dropped as duplicates")
	m.scansRejected = m.counterVec("scans_rejected_total", "Scan events rejected before queueing", "reason")
	m.scansStale = m.counter("scans_stale_total", "Scan events older than the stored record")
	m.scanLatency = m.histogram("scan_apply_latency_milliseconds", "Time to apply one scan event")

	m.savesCommitted = m.counter("saves_committed_total", "Judge field saves committed")
	m.savesFailed = m.counter("saves_failed_total", "Judge field saves that failed to write")
	m.saveConflicts = m.counter("save_conflicts_total", "Judge saves rejected by fingerprint precondition")
	m.bufferedEdits = m.gauge("buffered_edits", "Unsaved edits held across all judge buffers")

	m.reconcileRuns = m.counter("reconcile_runs_total", "Checkpoint reconciliations executed")
	m.reconcileWrites = m.counterVec("reconcile_writes_total", "Checkpoint writes by reconciliation", "action")

	m.batchChunks = m.counterVec("batch_chunks_total", "Roster batch chunks by outcome", "outcome")
	m.batchTeams = m.counterVec("batch_teams_total", "Roster team writes by outcome", "outcome")

	m.rankingLatency = m.histogram("ranking_latency_milliseconds", "Time to compute grades and ranking")
	m.teamsTotal = m.gauge("teams_total", "Teams on the roster")

	m.queueSize = m.gauge("queue_size", "Scan events waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum scan queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Scan events enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Scan events dequeued")
	m.queueEnqueueErrs = m.counter("queue_enqueue_errors_total", "Scan events refused by a full or closed queue")
	m.workerCount = m.gauge("worker_count", "Active scan workers")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Worker time per scan event")
	m.workerErrors = m.counter("worker_errors_total", "Scan events a worker failed to apply")

	m.storeLatency = m.histogramVec("store_operation_latency_milliseconds", "Document store operation latency", "op")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request latency",
		"endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "type")
}

// RecordScanIngested counts a scan applied to the store.
func RecordScanIngested() { globalManager.scansIngested.Inc() }

// RecordScanDuplicate counts a duplicate scan event.
func RecordScanDuplicate() { globalManager.scansDuplicate.Inc() }

// RecordScanRejected counts a rejected scan event by reason.
func RecordScanRejected(reason string) { globalManager.scansRejected.WithLabelValues(reason).Inc() }

// RecordScanStale counts an event older than the stored record.
func RecordScanStale() { globalManager.scansStale.Inc() }

// RecordScanLatency records scan apply latency in milliseconds.
func RecordScanLatency(ms float64) { globalManager.scanLatency.Observe(ms) }

func RecordSaveCommitted() { globalManager.savesCommitted.Inc() }
func RecordSaveFailed()    { globalManager.savesFailed.Inc() }
func RecordSaveConflict()  { globalManager.saveConflicts.Inc() }

// UpdateBufferedEdits sets the number of unsaved edits.
func UpdateBufferedEdits(n int) { globalManager.bufferedEdits.Set(float64(n)) }

// RecordReconcile counts a reconciliation and its writes.
func RecordReconcile(created, activated, secured, deactivated int) {
	globalManager.reconcileRuns.Inc()
	globalManager.reconcileWrites.WithLabelValues("created").Add(float64(created))
	globalManager.reconcileWrites.WithLabelValues("activated").Add(float64(activated))
	globalManager.reconcileWrites.WithLabelValues("secured").Add(float64(secured))
	globalManager.reconcileWrites.WithLabelValues("deactivated").Add(float64(deactivated))
}

// RecordBatchChunk counts one committed or failed roster chunk of size teams.
func RecordBatchChunk(ok bool, teams int) {
	outcome := "committed"
	if !ok {
		outcome = "failed"
	}
	globalManager.batchChunks.WithLabelValues(outcome).Inc()
	globalManager.batchTeams.WithLabelValues(outcome).Add(float64(teams))
}

// RecordRankingLatency records ranking computation latency in milliseconds.
func RecordRankingLatency(ms float64) { globalManager.rankingLatency.Observe(ms) }

// UpdateTeamsTotal sets the roster size.
func UpdateTeamsTotal(n int) { globalManager.teamsTotal.Set(float64(n)) }

func UpdateQueueSize(n int)          { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int)      { globalManager.queueCapacity.Set(float64(n)) }
func RecordQueueEnqueue()            { globalManager.queueEnqueued.Inc() }
func RecordQueueDequeue()            { globalManager.queueDequeued.Inc() }
func RecordQueueEnqueueError()       { globalManager.queueEnqueueErrs.Inc() }
func UpdateWorkerCount(n int)        { globalManager.workerCount.Set(float64(n)) }
func RecordWorkerError()             { globalManager.workerErrors.Inc() }
func RecordWorkerLatency(ms float64) { globalManager.workerLatency.Observe(ms) }

// RecordStoreLatency records a document store operation latency in milliseconds.
func RecordStoreLatency(op string, ms float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(ms)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
