// Package ledger is the Host Controller's durable record of backend
// containers it has started: a single bbolt bucket of JSON-encoded
// BackendHandle entries, adapted from the teacher's BoltStore (one
// bucket per entity kind, JSON marshal/unmarshal per key) down to the
// one entity kind the Host Controller needs to survive a restart.
package ledger

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/vaultmesh/vaultmesh/pkg/types"
	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

var bucketBackends = []byte("backends")

// Ledger is a bbolt-backed store of the backend containers this Host
// Controller replica is responsible for.
type Ledger struct {
	db *bolt.DB
}

// Open creates or opens the ledger database under dataDir.
func Open(dataDir string) (*Ledger, error) {
	dbPath := filepath.Join(dataDir, "hostctl.db")

	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBackends)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create bucket: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Put records or replaces a backend handle.
func (l *Ledger) Put(h types.BackendHandle) error {
	data, err := json.Marshal(h)
	if err != nil {
		return vmerr.Wrap(vmerr.KindStorage, "ledger.Put", "failed to marshal backend handle", err)
	}
	err = l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBackends).Put([]byte(h.ID), data)
	})
	if err != nil {
		return vmerr.Wrap(vmerr.KindStorage, "ledger.Put", "failed to persist backend handle", err)
	}
	return nil
}

// Get returns the handle for id, or vmerr.KindNotFound.
func (l *Ledger) Get(id string) (types.BackendHandle, error) {
	var h types.BackendHandle
	err := l.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBackends).Get([]byte(id))
		if data == nil {
			return vmerr.New(vmerr.KindNotFound, "ledger.Get", "unknown backend: "+id)
		}
		return json.Unmarshal(data, &h)
	})
	return h, err
}

// Delete removes a backend handle. It is not an error to delete an id
// that was never recorded.
func (l *Ledger) Delete(id string) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBackends).Delete([]byte(id))
	})
	if err != nil {
		return vmerr.Wrap(vmerr.KindStorage, "ledger.Delete", "failed to delete backend handle", err)
	}
	return nil
}

// List returns every recorded backend handle, oldest-started first is not
// guaranteed; callers that need recency order should sort on StartedAt.
func (l *Ledger) List() ([]types.BackendHandle, error) {
	var handles []types.BackendHandle
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBackends).ForEach(func(k, v []byte) error {
			var h types.BackendHandle
			if err := json.Unmarshal(v, &h); err != nil {
				return err
			}
			handles = append(handles, h)
			return nil
		})
	})
	if err != nil {
		return nil, vmerr.Wrap(vmerr.KindStorage, "ledger.List", "failed to scan backends", err)
	}
	return handles, nil
}
