package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmesh/vaultmesh/pkg/types"
	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerPutGet(t *testing.T) {
	l := newTestLedger(t)
	h := types.BackendHandle{ID: "b1", Name: "backend-1", Endpoint: "10.0.0.2:2022", StartedAt: time.Now()}

	require.NoError(t, l.Put(h))

	got, err := l.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, h.Name, got.Name)
	assert.Equal(t, h.Endpoint, got.Endpoint)
}

func TestLedgerGetMissing(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Get("nope")
	assert.Equal(t, vmerr.KindNotFound, vmerr.KindOf(err))
}

func TestLedgerDeleteAndList(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Put(types.BackendHandle{ID: "b1", Name: "backend-1"}))
	require.NoError(t, l.Put(types.BackendHandle{ID: "b2", Name: "backend-2"}))

	all, err := l.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, l.Delete("b1"))
	all, err = l.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, "b2", all[0].ID)
}
