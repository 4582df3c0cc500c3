// Package reconciler is the Host Controller's periodic health scan: inspect
// the state of every backend container recorded in the ledger, and replace any
// that have failed. It is stateless across cycles, adapted directly from
// the teacher's reconciler.run()/reconcile() shape narrowed to a single
// entity kind (no nodes, no tasks — just backend containers).
package reconciler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaultmesh/vaultmesh/pkg/ledger"
	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/metrics"
	"github.com/vaultmesh/vaultmesh/pkg/types"
)

// DefaultInterval matches the teacher's fixed reconciliation cadence.
const DefaultInterval = 10 * time.Second

// Inspector reports a backend container's current lifecycle state.
type Inspector interface {
	Inspect(ctx context.Context, handle types.BackendHandle) (types.BackendState, error)
}

// Replacer stops a failed backend and starts its replacement, persisting
// the new handle.
type Replacer interface {
	Replace(ctx context.Context, handle types.BackendHandle) error
}

// Reconciler periodically inspects every ledgered backend and hands
// failed ones to the Replacer. Only the Raft leader replica runs the
// replace step; followers still tick but skip acting.
type Reconciler struct {
	ledger   *ledger.Ledger
	executor Inspector
	replacer Replacer
	interval time.Duration
	leader   func() bool
	logger   zerolog.Logger
	stopCh   chan struct{}
}

// New creates a Reconciler. leader reports whether this replica should act.
func New(ledg *ledger.Ledger, executor Inspector, replacer Replacer, leader func() bool) *Reconciler {
	return &Reconciler{
		ledger:   ledg,
		executor: executor,
		replacer: replacer,
		interval: DefaultInterval,
		leader:   leader,
		logger:   log.WithComponent("reconciler"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the reconciliation loop in a background goroutine.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop ends the reconciliation loop.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Msg("reconciler started")

	for {
		select {
		case <-ticker.C:
			r.reconcile()
		case <-r.stopCh:
			r.logger.Info().Msg("reconciler stopped")
			return
		}
	}
}

func (r *Reconciler) reconcile() {
	if !r.leader() {
		return
	}

	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	handles, err := r.ledger.List()
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list ledgered backends")
		return
	}

	ctx := context.Background()
	for _, handle := range handles {
		state, err := r.executor.Inspect(ctx, handle)
		if err != nil {
			r.logger.Warn().Err(err).Str("backend_id", handle.ID).Msg("failed to inspect backend, skipping")
			continue
		}
		if state != types.BackendFailed {
			continue
		}

		r.logger.Warn().Str("backend_id", handle.ID).Str("backend_name", handle.Name).Msg("backend unhealthy, replacing")
		if err := r.replacer.Replace(ctx, handle); err != nil {
			r.logger.Error().Err(err).Str("backend_id", handle.ID).Msg("failed to replace backend")
			continue
		}
		metrics.BackendsReplacedTotal.Inc()
	}
}
