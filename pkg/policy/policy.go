// Package policy implements the Load Balancer's Scheduler Policies: the
// configurable knob that picks the Request Queue's aging coefficient and
// selects a healthy backend node for a dequeued request.
//
// Per the load balancer's design, node selection is cyclic under every
// policy — the policies differ only in how the queue orders pending
// requests. FCFS and ROUNDROBIN order by arrival alone (aging coefficient
// zero); SJN orders by the size/age score using the configured aging
// coefficient, so smaller requests go first but sufficiently old requests
// still win (starvation-free).
package policy

import (
	"sync"

	"github.com/vaultmesh/vaultmesh/pkg/types"
	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// Policy names the scheduler policy selected at startup.
type Policy string

const (
	FCFS       Policy = "FCFS"
	SJN        Policy = "SJN"
	RoundRobin Policy = "ROUNDROBIN"
)

// Valid reports whether p is a recognized policy name.
func (p Policy) Valid() bool {
	switch p {
	case FCFS, SJN, RoundRobin:
		return true
	default:
		return false
	}
}

// QueueAging returns the aging coefficient the Request Queue should use
// under policy p. Only SJN ages by size; FCFS and ROUNDROBIN order purely
// by arrival.
func QueueAging(p Policy, configuredAlpha float64) float64 {
	if p == SJN {
		return configuredAlpha
	}
	return 0
}

// NodeSelector picks a healthy Storage Node by cyclic rotation, the same
// mechanism the Backend Pool uses for its round-robin cursor. It is
// independent of the queue's ordering policy: every policy selects nodes
// this way.
type NodeSelector struct {
	mu     sync.Mutex
	cursor int
}

// NewNodeSelector creates a cyclic node selector starting at the front of
// whatever healthy-node slice is passed to Select.
func NewNodeSelector() *NodeSelector {
	return &NodeSelector{}
}

// Select returns the next healthy node in rotation. healthy must contain
// only nodes currently in HEALTHY state; an empty slice yields
// vmerr.KindResource ("no healthy nodes").
func (s *NodeSelector) Select(healthy []types.StorageNode) (types.StorageNode, error) {
	if len(healthy) == 0 {
		return types.StorageNode{}, vmerr.New(vmerr.KindResource, "policy.Select", "no healthy storage nodes available")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor >= len(healthy) {
		s.cursor = 0
	}
	node := healthy[s.cursor]
	s.cursor = (s.cursor + 1) % len(healthy)
	return node, nil
}
