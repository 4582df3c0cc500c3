package metastore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vaultmesh/vaultmesh/pkg/types"
)

// newTestSink builds an AuditSink with no writer goroutine running, so
// Log's drop-oldest behavior can be observed directly on the channel.
func newTestSink(capacity int) *AuditSink {
	return &AuditSink{
		pending: make(chan types.AuditLogEntry, capacity),
		stopCh:  make(chan struct{}),
	}
}

func TestAuditSinkLogDoesNotBlockWhenFull(t *testing.T) {
	a := newTestSink(1)

	a.Log(types.AuditLogEntry{Description: "first"})
	a.Log(types.AuditLogEntry{Description: "second"}) // queue full, drops "first"

	select {
	case entry := <-a.pending:
		assert.Equal(t, "second", entry.Description, "oldest entry must be dropped to make room")
	default:
		t.Fatal("expected a pending entry")
	}
}

func TestAuditSinkLogStampsTimestamp(t *testing.T) {
	a := newTestSink(1)
	a.Log(types.AuditLogEntry{Description: "x"})

	entry := <-a.pending
	assert.False(t, entry.Timestamp.IsZero())
}
