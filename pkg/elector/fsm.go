package elector

import (
	"io"

	"github.com/hashicorp/raft"
)

// noopFSM carries no application state: the elector only needs Raft's
// leadership machinery, not its replicated log, so every entry is a no-op.
type noopFSM struct{}

func (f *noopFSM) Apply(*raft.Log) interface{} { return nil }

func (f *noopFSM) Snapshot() (raft.FSMSnapshot, error) {
	return noopSnapshot{}, nil
}

func (f *noopFSM) Restore(rc io.ReadCloser) error {
	return rc.Close()
}

type noopSnapshot struct{}

func (noopSnapshot) Persist(sink raft.SnapshotSink) error {
	return sink.Close()
}

func (noopSnapshot) Release() {}
