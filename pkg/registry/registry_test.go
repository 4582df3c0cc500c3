package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmesh/vaultmesh/pkg/health"
	"github.com/vaultmesh/vaultmesh/pkg/types"
)

type fakeChecker struct {
	healthy bool
}

func (f *fakeChecker) Check(ctx context.Context) health.Result {
	return health.Result{Healthy: f.healthy, CheckedAt: time.Now()}
}

func (f *fakeChecker) Type() health.CheckType { return health.CheckTypeSFTP }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := New()
	r.Register(types.StorageNode{Name: "node-a", Address: "10.0.0.1:22"})

	n, err := r.Get("node-a")
	require.NoError(t, err)
	assert.Equal(t, types.HealthUnknown, n.State)
	assert.Equal(t, 1, n.Permits)
}

func TestRegistryGetUnknownNode(t *testing.T) {
	r := New()
	_, err := r.Get("ghost")
	assert.Error(t, err)
}

func TestRegistryHealthyFiltersState(t *testing.T) {
	r := New()
	r.Register(types.StorageNode{Name: "a"})
	r.Register(types.StorageNode{Name: "b"})
	r.setState("a", types.HealthHealthy)
	r.setState("b", types.HealthUnhealthy)

	healthy := r.Healthy()
	require.Len(t, healthy, 1)
	assert.Equal(t, "a", healthy[0].Name)
	assert.Len(t, r.All(), 2)
}

func TestRegistryCountByState(t *testing.T) {
	r := New()
	r.Register(types.StorageNode{Name: "a"})
	r.Register(types.StorageNode{Name: "b"})
	r.setState("a", types.HealthHealthy)

	counts := r.CountByState()
	assert.Equal(t, 1, counts[string(types.HealthHealthy)])
	assert.Equal(t, 1, counts[string(types.HealthUnknown)])
}

func TestProberFlipsUnhealthyAfterRetries(t *testing.T) {
	r := New()
	r.Register(types.StorageNode{Name: "a"})
	r.setState("a", types.HealthHealthy)

	checker := &fakeChecker{healthy: false}
	newCheck := func(node types.StorageNode) health.Checker { return checker }

	p := NewProber(r, newCheck, 10*time.Millisecond, 2, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.tick(ctx)
	n, _ := r.Get("a")
	assert.Equal(t, types.HealthHealthy, n.State, "one failure must not flip state yet")

	p.tick(ctx)
	n, _ = r.Get("a")
	assert.Equal(t, types.HealthUnhealthy, n.State, "two consecutive failures must flip state")
}

func TestProberRecoversOnSingleSuccess(t *testing.T) {
	r := New()
	r.Register(types.StorageNode{Name: "a"})
	r.setState("a", types.HealthUnhealthy)

	checker := &fakeChecker{healthy: true}
	newCheck := func(node types.StorageNode) health.Checker { return checker }

	p := NewProber(r, newCheck, 10*time.Millisecond, 2, nil)
	p.tick(context.Background())

	n, _ := r.Get("a")
	assert.Equal(t, types.HealthHealthy, n.State)
}
