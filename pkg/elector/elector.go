// Package elector implements the Host Controller's HA leader election: a
// thin Raft wrapper, adapted from the teacher's cluster Manager, reduced
// to the one property the Host Controller needs — which replica, if any,
// is allowed to act on a scale event.
package elector

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"

	"github.com/vaultmesh/vaultmesh/pkg/log"
)

// Peer is one voting member of the election group.
type Peer struct {
	ID      string
	Address string
}

// Config describes this replica's identity and the full voter set it
// bootstraps with. A single-entry Peers list runs standalone.
type Config struct {
	NodeID   string
	BindAddr string
	DataDir  string
	Peers    []Peer
}

// Elector wraps a Raft instance carrying no application log beyond the
// leadership state itself — the Host Controller's reconciliation is
// idempotent, so followers that briefly believe they are leader after a
// takeover cause no harm (per the host controller HA design).
type Elector struct {
	nodeID string
	raft   *raft.Raft
}

// New creates and bootstraps (if not already bootstrapped from a previous
// run's on-disk state) a Raft instance among cfg.Peers.
//
// Timeouts mirror the teacher's cluster Manager: tuned down from Raft's
// WAN-oriented defaults for sub-10s failover on a LAN deployment.
func New(cfg Config) (*Elector, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("elector: create data dir: %w", err)
	}

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)
	raftCfg.HeartbeatTimeout = 500 * time.Millisecond
	raftCfg.ElectionTimeout = 500 * time.Millisecond
	raftCfg.CommitTimeout = 50 * time.Millisecond
	raftCfg.LeaderLeaseTimeout = 250 * time.Millisecond

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("elector: resolve bind address: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("elector: create transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("elector: create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("elector: create log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.db"))
	if err != nil {
		return nil, fmt.Errorf("elector: create stable store: %w", err)
	}

	hasState, err := raft.HasExistingState(logStore, stableStore, snapshotStore)
	if err != nil {
		return nil, fmt.Errorf("elector: inspect existing state: %w", err)
	}

	r, err := raft.NewRaft(raftCfg, &noopFSM{}, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("elector: create raft: %w", err)
	}

	if !hasState {
		servers := make([]raft.Server, 0, len(cfg.Peers))
		for _, p := range cfg.Peers {
			servers = append(servers, raft.Server{ID: raft.ServerID(p.ID), Address: raft.ServerAddress(p.Address)})
		}
		future := r.BootstrapCluster(raft.Configuration{Servers: servers})
		if err := future.Error(); err != nil && err != raft.ErrCantBootstrap {
			return nil, fmt.Errorf("elector: bootstrap cluster: %w", err)
		}
	}

	return &Elector{nodeID: cfg.NodeID, raft: r}, nil
}

// IsLeader reports whether this replica currently holds Raft leadership.
func (e *Elector) IsLeader() bool {
	return e.raft.State() == raft.Leader
}

// LeaderAddr returns the current leader's bind address, empty if unknown.
func (e *Elector) LeaderAddr() string {
	return string(e.raft.Leader())
}

// PeerCount implements metrics.LeaderSource.
func (e *Elector) PeerCount() int {
	future := e.raft.GetConfiguration()
	if err := future.Error(); err != nil {
		return 0
	}
	return len(future.Configuration().Servers)
}

// Shutdown gracefully leaves the election group.
func (e *Elector) Shutdown() error {
	return e.raft.Shutdown().Error()
}

// WaitForLeader blocks until a leader is known or timeout elapses,
// returning the address of whoever it is (possibly this replica).
func (e *Elector) WaitForLeader(timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr := e.LeaderAddr(); addr != "" {
			return addr, true
		}
		time.Sleep(50 * time.Millisecond)
	}
	log.WithComponent("elector").Warn().Msg("timed out waiting for a raft leader")
	return "", false
}
