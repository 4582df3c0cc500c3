package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Node metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vaultmesh_nodes_total",
			Help: "Total number of storage nodes by health state",
		},
		[]string{"state"},
	)

	FilesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vaultmesh_files_total",
			Help: "Total number of files tracked in the metadata store",
		},
	)

	ChunksTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vaultmesh_chunks_total",
			Help: "Total number of chunks tracked in the metadata store",
		},
	)

	// Host controller HA leader election (adapted from Raft peer metrics)
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vaultmesh_hostctl_is_leader",
			Help: "Whether this host controller replica is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vaultmesh_hostctl_peers_total",
			Help: "Total number of host controller replicas participating in leader election",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultmesh_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vaultmesh_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Queue and dispatch metrics
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vaultmesh_queue_depth",
			Help: "Current number of requests waiting in the request queue by operation",
		},
		[]string{"operation"},
	)

	DispatchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vaultmesh_dispatch_latency_seconds",
			Help:    "Time the LB worker spends dispatching a dequeued request: node selection, simulated latency and forwarding",
			Buckets: prometheus.DefBuckets,
		},
	)

	RequestsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultmesh_requests_dispatched_total",
			Help: "Total number of requests dispatched to a storage node by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Pipeline operation metrics
	UploadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vaultmesh_upload_duration_seconds",
			Help:    "Time taken to complete an upload pipeline run, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DownloadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vaultmesh_download_duration_seconds",
			Help:    "Time taken to complete a download pipeline run, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DeleteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vaultmesh_delete_duration_seconds",
			Help:    "Time taken to complete a delete pipeline run, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ChunksUploadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vaultmesh_chunks_uploaded_total",
			Help: "Total number of chunks successfully written to a backend node",
		},
	)

	RollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultmesh_rollbacks_total",
			Help: "Total number of pipeline rollbacks by triggering stage",
		},
		[]string{"stage"},
	)

	CRCMismatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vaultmesh_crc_mismatches_total",
			Help: "Total number of chunk CRC mismatches detected on download",
		},
	)

	// Host controller reconciliation metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vaultmesh_reconciliation_duration_seconds",
			Help:    "Time taken for a host controller health-scan cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vaultmesh_reconciliation_cycles_total",
			Help: "Total number of host controller health-scan cycles completed",
		},
	)

	BackendsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vaultmesh_backends_started_total",
			Help: "Total number of backend containers started by the host controller",
		},
	)

	BackendsReplacedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vaultmesh_backends_replaced_total",
			Help: "Total number of backend containers replaced after a failed health check",
		},
	)

	// Scaling metrics
	ScaleEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultmesh_scale_events_total",
			Help: "Total number of scale events published by action",
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(FilesTotal)
	prometheus.MustRegister(ChunksTotal)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftPeers)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(DispatchLatency)
	prometheus.MustRegister(RequestsDispatchedTotal)

	prometheus.MustRegister(UploadDuration)
	prometheus.MustRegister(DownloadDuration)
	prometheus.MustRegister(DeleteDuration)
	prometheus.MustRegister(ChunksUploadedTotal)
	prometheus.MustRegister(RollbacksTotal)
	prometheus.MustRegister(CRCMismatchesTotal)

	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(BackendsStartedTotal)
	prometheus.MustRegister(BackendsReplacedTotal)

	prometheus.MustRegister(ScaleEventsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
