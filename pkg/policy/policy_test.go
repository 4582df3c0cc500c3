package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vaultmesh/vaultmesh/pkg/types"
)

func TestQueueAging(t *testing.T) {
	assert.Equal(t, 0.01, QueueAging(SJN, 0.01))
	assert.Equal(t, 0.0, QueueAging(FCFS, 0.01))
	assert.Equal(t, 0.0, QueueAging(RoundRobin, 0.01))
}

func TestPolicyValid(t *testing.T) {
	assert.True(t, FCFS.Valid())
	assert.True(t, SJN.Valid())
	assert.True(t, RoundRobin.Valid())
	assert.False(t, Policy("BOGUS").Valid())
}

func TestNodeSelectorCyclesAndWraps(t *testing.T) {
	s := NewNodeSelector()
	nodes := []types.StorageNode{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	n1, err := s.Select(nodes)
	assert.NoError(t, err)
	n2, _ := s.Select(nodes)
	n3, _ := s.Select(nodes)
	n4, _ := s.Select(nodes)

	assert.Equal(t, "a", n1.Name)
	assert.Equal(t, "b", n2.Name)
	assert.Equal(t, "c", n3.Name)
	assert.Equal(t, "a", n4.Name, "selection must wrap around")
}

func TestNodeSelectorNoHealthyNodes(t *testing.T) {
	s := NewNodeSelector()
	_, err := s.Select(nil)
	assert.Error(t, err)
}
