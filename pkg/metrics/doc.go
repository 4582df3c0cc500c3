/*
Package metrics exposes vaultmesh's Prometheus instrumentation.

It defines the gauges, counters, and histograms published by every
component (aggregator, LB worker, host controller, API layer), a
Collector that periodically samples slow-changing state (node health,
file counts, HA leadership), and a Timer helper for recording operation
durations.

# Core Metrics

Pipeline:
  - vaultmesh_upload_duration_seconds / vaultmesh_download_duration_seconds
    / vaultmesh_delete_duration_seconds: per-operation pipeline latency
  - vaultmesh_chunks_uploaded_total, vaultmesh_rollbacks_total,
    vaultmesh_crc_mismatches_total

Queue and dispatch:
  - vaultmesh_queue_depth: current backlog by operation kind
  - vaultmesh_dispatch_latency_seconds: time from dequeue until forwarding ends
  - vaultmesh_requests_dispatched_total: by operation and outcome

Nodes and host controller:
  - vaultmesh_nodes_total: by health state
  - vaultmesh_reconciliation_duration_seconds /
    vaultmesh_reconciliation_cycles_total: health-scan cycle cost
  - vaultmesh_backends_started_total / vaultmesh_backends_replaced_total
  - vaultmesh_hostctl_is_leader / vaultmesh_hostctl_peers_total: HA state

Scaling:
  - vaultmesh_scale_events_total: by action (up/down/stable)

# Usage

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.UploadDuration)

	metrics.ChunksUploadedTotal.Inc()
	metrics.QueueDepth.WithLabelValues("UPLOAD").Set(float64(depth))

Collector:

	collector := metrics.NewCollector(store, registry, leaderSource)
	collector.Start()
	defer collector.Stop()

# Integration Points

This package integrates with:

  - pkg/aggregator: times upload/download/delete and counts rollbacks
  - pkg/lb: times dispatch and counts forwarded requests
  - pkg/hostctl: counts started backends
  - pkg/reconciler: times reconciliation cycles and counts backend replacements
  - pkg/lb (publisher): counts published scale events
  - pkg/api, pkg/lb, cmd/vaultmesh-hostctl: each serves /metrics, /health,
    /ready, /live via the handlers here, over whatever readiness-critical
    component names that binary actually registers

# See Also

  - Prometheus client documentation: https://github.com/prometheus/client_golang
*/
package metrics
