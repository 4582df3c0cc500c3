package reconciler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmesh/vaultmesh/pkg/ledger"
	"github.com/vaultmesh/vaultmesh/pkg/types"
)

type fakeInspector struct {
	states map[string]types.BackendState
}

func (f *fakeInspector) Inspect(_ context.Context, handle types.BackendHandle) (types.BackendState, error) {
	return f.states[handle.ID], nil
}

type fakeReplacer struct {
	replaced atomic.Int32
}

func (f *fakeReplacer) Replace(_ context.Context, _ types.BackendHandle) error {
	f.replaced.Add(1)
	return nil
}

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestReconcileReplacesFailedBackend(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Put(types.BackendHandle{ID: "b1", Name: "backend-1"}))
	require.NoError(t, l.Put(types.BackendHandle{ID: "b2", Name: "backend-2"}))

	inspector := &fakeInspector{states: map[string]types.BackendState{
		"b1": types.BackendRunning,
		"b2": types.BackendFailed,
	}}
	replacer := &fakeReplacer{}

	r := New(l, inspector, replacer, func() bool { return true })
	r.reconcile()

	assert.Equal(t, int32(1), replacer.replaced.Load())
}

func TestReconcileSkipsWhenNotLeader(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Put(types.BackendHandle{ID: "b1", Name: "backend-1"}))

	inspector := &fakeInspector{states: map[string]types.BackendState{"b1": types.BackendFailed}}
	replacer := &fakeReplacer{}

	r := New(l, inspector, replacer, func() bool { return false })
	r.reconcile()

	assert.Equal(t, int32(0), replacer.replaced.Load())
}

func TestStartStopRunsLoop(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Put(types.BackendHandle{ID: "b1", Name: "backend-1"}))

	inspector := &fakeInspector{states: map[string]types.BackendState{"b1": types.BackendFailed}}
	replacer := &fakeReplacer{}

	r := New(l, inspector, replacer, func() bool { return true })
	r.interval = 5 * time.Millisecond
	r.Start()
	defer r.Stop()

	require.Eventually(t, func() bool {
		return replacer.replaced.Load() > 0
	}, time.Second, 5*time.Millisecond)
}
