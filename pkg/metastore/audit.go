package metastore

import (
	"context"
	"sync"
	"time"

	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/types"
)

const auditQueueDepth = 256

// AuditSink is the non-blocking audit log writer. Log() never blocks the
// caller and never returns an error: a full queue drops the oldest
// pending entry to make room for the new one, and a failed write is
// logged and swallowed rather than propagated, so the audit path can
// never stall or fail the primary upload/download/delete path.
type AuditSink struct {
	store *Store

	mu      sync.Mutex
	pending chan types.AuditLogEntry
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewAuditSink creates a sink backed by store and starts its writer
// goroutine.
func NewAuditSink(store *Store) *AuditSink {
	a := &AuditSink{
		store:   store,
		pending: make(chan types.AuditLogEntry, auditQueueDepth),
		stopCh:  make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Log enqueues entry for append. If the queue is full, the oldest queued
// entry is discarded to make room.
func (a *AuditSink) Log(entry types.AuditLogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	select {
	case a.pending <- entry:
		return
	default:
	}

	// Queue full: drop the oldest entry, then try once more.
	select {
	case <-a.pending:
	default:
	}
	select {
	case a.pending <- entry:
	default:
		// Lost the race to another producer; the entry is simply dropped.
	}
}

func (a *AuditSink) run() {
	defer a.wg.Done()
	for {
		select {
		case entry := <-a.pending:
			a.write(entry)
		case <-a.stopCh:
			a.drain()
			return
		}
	}
}

func (a *AuditSink) drain() {
	for {
		select {
		case entry := <-a.pending:
			a.write(entry)
		default:
			return
		}
	}
}

func (a *AuditSink) write(entry types.AuditLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := a.store.db.ExecContext(ctx, `
		INSERT INTO audit_log (kind, owner_id, description, severity, component, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.Kind, entry.OwnerID, entry.Description, entry.Severity, entry.Component, entry.Timestamp)
	if err != nil {
		log.WithComponent("audit-sink").Error().Err(err).Msg("failed to persist audit log entry")
	}
}

// Stop flushes any pending entries and stops the writer goroutine.
func (a *AuditSink) Stop() {
	close(a.stopCh)
	a.wg.Wait()
}
