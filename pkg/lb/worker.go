package lb

import (
	"context"
	"math/rand"
	"time"

	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/metrics"
	"github.com/vaultmesh/vaultmesh/pkg/policy"
	"github.com/vaultmesh/vaultmesh/pkg/queue"
	"github.com/vaultmesh/vaultmesh/pkg/types"
)

// NodeSource is the subset of registry.Registry the worker depends on.
type NodeSource interface {
	Healthy() []types.StorageNode
	WithPermit(ctx context.Context, name string, fn func() error) error
}

// Worker is the Load Balancer Worker: a single dedicated loop that
// dequeues requests, picks a healthy backend, simulates network latency,
// and forwards the request under that backend's permit.
type Worker struct {
	queue    *queue.Queue
	nodes    NodeSource
	selector *policy.NodeSelector

	latencyMin time.Duration
	latencyMax time.Duration

	done chan struct{}
}

// Config controls the worker's simulated-latency window.
type Config struct {
	LatencyMin time.Duration
	LatencyMax time.Duration
}

// NewWorker creates a Worker over q and nodes, selecting backends with
// selector (shared with any sibling workers so rotation stays coherent).
func NewWorker(q *queue.Queue, nodes NodeSource, selector *policy.NodeSelector, cfg Config) *Worker {
	if cfg.LatencyMin <= 0 {
		cfg.LatencyMin = 1000 * time.Millisecond
	}
	if cfg.LatencyMax <= cfg.LatencyMin {
		cfg.LatencyMax = 5000 * time.Millisecond
	}
	return &Worker{
		queue:      q,
		nodes:      nodes,
		selector:   selector,
		latencyMin: cfg.LatencyMin,
		latencyMax: cfg.LatencyMax,
		done:       make(chan struct{}),
	}
}

// Run drives the dequeue loop until Stop is called. Interruption is
// cooperative: Stop closes the done channel the queue's blocking dequeue
// watches, so a pending dequeue unblocks and the loop exits cleanly.
func (w *Worker) Run() {
	for {
		req, ok := w.queue.Dequeue(w.done)
		if !ok {
			log.WithComponent("lb-worker").Info().Msg("worker loop stopped")
			return
		}
		w.handle(req)
	}
}

// Stop signals the loop to terminate after its current or next dequeue.
func (w *Worker) Stop() {
	close(w.done)
}

func (w *Worker) handle(req *types.Request) {
	logger := log.WithComponent("lb-worker")
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DispatchLatency)

	healthy := w.nodes.Healthy()
	node, err := w.selector.Select(healthy)
	if err != nil {
		logger.Error().Err(err).Str("request_id", req.ID).Msg("no healthy node available for request")
		metrics.RequestsDispatchedTotal.WithLabelValues(string(req.Operation), "no_healthy_node").Inc()
		w.finish(req, err)
		return
	}

	sleepSimulatedLatency(w.latencyMin, w.latencyMax)

	fwdErr := w.nodes.WithPermit(context.Background(), node.Name, func() error {
		return req.Forward(node.Address)
	})

	outcome := "success"
	if fwdErr != nil {
		outcome = "failure"
		logger.Error().Err(fwdErr).Str("request_id", req.ID).Str("node", node.Name).Msg("request forwarding failed")
	} else {
		logger.Info().Str("request_id", req.ID).Str("node", node.Name).Msg("request forwarded")
	}

	metrics.RequestsDispatchedTotal.WithLabelValues(string(req.Operation), outcome).Inc()
	w.finish(req, fwdErr)
}

func (w *Worker) finish(req *types.Request, err error) {
	if req.Done == nil {
		return
	}
	select {
	case req.Done <- err:
	default:
	}
}

func sleepSimulatedLatency(min, max time.Duration) {
	if max <= min {
		time.Sleep(min)
		return
	}
	span := int64(max - min)
	d := min + time.Duration(rand.Int63n(span))
	time.Sleep(d)
}
