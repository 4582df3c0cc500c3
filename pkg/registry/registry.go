// Package registry implements the Node Registry: a thread-safe collection
// of Storage Node entries, with a Health Prober that periodically checks
// every registered endpoint and flips its HEALTHY/UNHEALTHY state.
package registry

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vaultmesh/vaultmesh/pkg/events"
	"github.com/vaultmesh/vaultmesh/pkg/health"
	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/types"
	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// Registry tracks Storage Node entries and their reachability state. It
// uses a readers-writer lock: many readers (healthy/all snapshots), one
// writer (register/unregister/state update) at a time.
//
// It also owns each node's permit: the LB worker's per-backend mutual
// exclusion runs through WithPermit, the same semaphore discipline the
// Backend Pool uses on the Aggregator side, so two LB workers can never
// forward to the same backend concurrently beyond its declared capacity.
type Registry struct {
	mu      sync.RWMutex
	nodes   map[string]*types.StorageNode // keyed by Name
	permits map[string]*semaphore.Weighted
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		nodes:   make(map[string]*types.StorageNode),
		permits: make(map[string]*semaphore.Weighted),
	}
}

// Register adds or replaces a Storage Node entry. New nodes start UNKNOWN
// until the first probe cycle classifies them.
func (r *Registry) Register(node types.StorageNode) {
	if node.State == "" {
		node.State = types.HealthUnknown
	}
	if node.Permits == 0 {
		node.Permits = 1
	}
	r.mu.Lock()
	n := node
	r.nodes[node.Name] = &n
	if _, ok := r.permits[node.Name]; !ok {
		r.permits[node.Name] = semaphore.NewWeighted(int64(node.Permits))
	}
	r.mu.Unlock()
}

// Unregister removes a node from the registry entirely.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, name)
	delete(r.permits, name)
}

// WithPermit acquires node's permit, runs fn, and releases it on every
// exit path. A cancelled ctx while waiting surfaces as vmerr.KindCancelled.
func (r *Registry) WithPermit(ctx context.Context, name string, fn func() error) error {
	r.mu.RLock()
	sem, ok := r.permits[name]
	r.mu.RUnlock()
	if !ok {
		return vmerr.New(vmerr.KindResource, "registry.WithPermit", "unknown node: "+name)
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return vmerr.Wrap(vmerr.KindCancelled, "registry.WithPermit", "permit acquisition interrupted", err)
	}
	defer sem.Release(1)

	return fn()
}

// Get returns a copy of the named node, or vmerr.KindNotFound.
func (r *Registry) Get(name string) (types.StorageNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[name]
	if !ok {
		return types.StorageNode{}, vmerr.New(vmerr.KindNotFound, "registry.Get", "unknown node: "+name)
	}
	return *n, nil
}

// Healthy returns a snapshot of every node currently HEALTHY.
func (r *Registry) Healthy() []types.StorageNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.StorageNode, 0, len(r.nodes))
	for _, n := range r.nodes {
		if n.State == types.HealthHealthy {
			out = append(out, *n)
		}
	}
	return out
}

// All returns a snapshot of every registered node, regardless of state.
func (r *Registry) All() []types.StorageNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.StorageNode, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, *n)
	}
	return out
}

// CountByState implements metrics.RegistrySource for the Prometheus
// collector.
func (r *Registry) CountByState() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, n := range r.nodes {
		counts[string(n.State)]++
	}
	return counts
}

func (r *Registry) setState(name string, state types.HealthState) (changed bool, previous types.HealthState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[name]
	if !ok {
		return false, ""
	}
	previous = n.State
	if previous == state {
		return false, previous
	}
	n.State = state
	return true, previous
}

// CheckerFactory builds the liveness Checker for a node's address. The
// Prober calls this once per probe, so the checker can authenticate with
// whatever credentials the registry's owner supplies.
type CheckerFactory func(node types.StorageNode) health.Checker

// Prober periodically probes every registered node and updates its state
// based on consecutive successes/failures, mirroring the teacher's
// health_monitor ticker-loop-per-target shape.
type Prober struct {
	registry *Registry
	newCheck CheckerFactory
	interval time.Duration
	config   health.Config
	broker   *events.Broker

	mu       sync.Mutex
	statuses map[string]*health.Status
	cancel   context.CancelFunc
}

// NewProber creates a Prober that checks every registered node every
// interval, flipping a node to UNHEALTHY after retries consecutive failures
// and back to HEALTHY on its first success. broker may be nil; if set, every transition is
// published as a node-health event.
func NewProber(registry *Registry, newCheck CheckerFactory, interval time.Duration, retries int, broker *events.Broker) *Prober {
	return &Prober{
		registry: registry,
		newCheck: newCheck,
		interval: interval,
		config:   health.Config{Retries: retries, Timeout: interval / 2},
		broker:   broker,
		statuses: make(map[string]*health.Status),
	}
}

// Start begins the probe loop on its own goroutine.
func (p *Prober) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	go p.run(ctx)
}

// Stop cancels the probe loop.
func (p *Prober) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Prober) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ticker.C:
			p.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Prober) tick(ctx context.Context) {
	for _, node := range p.registry.All() {
		p.probeOne(ctx, node)
	}
}

func (p *Prober) probeOne(ctx context.Context, node types.StorageNode) {
	checker := p.newCheck(node)

	checkCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	result := checker.Check(checkCtx)
	cancel()

	p.mu.Lock()
	status, ok := p.statuses[node.Name]
	if !ok {
		status = health.NewStatus()
		p.statuses[node.Name] = status
	}
	status.Update(result, p.config)
	healthy := status.Healthy
	p.mu.Unlock()

	newState := types.HealthUnhealthy
	if healthy {
		newState = types.HealthHealthy
	}

	changed, previous := p.registry.setState(node.Name, newState)
	if changed {
		log.WithComponent("health-prober").Info().
			Str("node", node.Name).
			Str("from", string(previous)).
			Str("to", string(newState)).
			Str("message", result.Message).
			Msg("storage node health state transition")

		if p.broker != nil {
			p.broker.Publish(&events.Event{
				Type:    events.EventNodeHealthChanged,
				Message: node.Name + ": " + string(previous) + " -> " + string(newState),
				Metadata: map[string]string{
					"node":  node.Name,
					"from":  string(previous),
					"to":    string(newState),
					"cause": result.Message,
				},
			})
		}
	}
}
