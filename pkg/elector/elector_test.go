package elector

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestStandaloneElectorBecomesLeader(t *testing.T) {
	addr := freeAddr(t)
	dir := t.TempDir()

	e, err := New(Config{
		NodeID:   "node-1",
		BindAddr: addr,
		DataDir:  dir,
		Peers:    []Peer{{ID: "node-1", Address: addr}},
	})
	require.NoError(t, err)
	defer e.Shutdown()

	leaderAddr, ok := e.WaitForLeader(5 * time.Second)
	require.True(t, ok)
	require.Equal(t, addr, leaderAddr)
	require.True(t, e.IsLeader())
	require.Equal(t, 1, e.PeerCount())
}
