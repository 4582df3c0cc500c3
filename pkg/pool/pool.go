// Package pool implements the Backend Pool: round-robin endpoint selection
// plus per-endpoint mutual exclusion so at most permit_count concurrent
// transfers ever touch a single SFTP backend at once.
package pool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// Pool holds an ordered list of backend endpoints and a counting semaphore
// per endpoint. It is safe for concurrent use.
type Pool struct {
	mu        sync.Mutex
	endpoints []string
	cursor    int
	permits   map[string]*semaphore.Weighted
}

// New creates a Pool over the given endpoints, each allowing permitCount
// concurrent transfers (the reference default is 1, serializing every
// backend to a single in-flight transfer).
func New(endpoints []string, permitCount int) *Pool {
	if permitCount < 1 {
		permitCount = 1
	}
	permits := make(map[string]*semaphore.Weighted, len(endpoints))
	for _, ep := range endpoints {
		permits[ep] = semaphore.NewWeighted(int64(permitCount))
	}
	return &Pool{endpoints: append([]string(nil), endpoints...), permits: permits}
}

// Next returns the next endpoint in round-robin order, wrapping at the end
// of the list. It fails with vmerr.KindResource if the pool is empty.
func (p *Pool) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return "", vmerr.New(vmerr.KindResource, "pool.Next", "no backend endpoints configured")
	}
	ep := p.endpoints[p.cursor%len(p.endpoints)]
	p.cursor++
	return ep, nil
}

// Endpoints returns a snapshot of the configured endpoints.
func (p *Pool) Endpoints() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.endpoints))
	copy(out, p.endpoints)
	return out
}

// WithPermit acquires endpoint's permit, runs fn, and releases the permit
// on every exit path including a panic inside fn. A cancelled ctx while
// waiting for the permit surfaces as vmerr.KindCancelled.
func (p *Pool) WithPermit(ctx context.Context, endpoint string, fn func() error) error {
	p.mu.Lock()
	sem, ok := p.permits[endpoint]
	p.mu.Unlock()
	if !ok {
		return vmerr.New(vmerr.KindResource, "pool.WithPermit", "unknown endpoint: "+endpoint)
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return vmerr.Wrap(vmerr.KindCancelled, "pool.WithPermit", "permit acquisition interrupted", err)
	}
	defer sem.Release(1)

	return fn()
}

// Register adds a new endpoint to the pool with its own permit semaphore.
func (p *Pool) Register(endpoint string, permitCount int) {
	if permitCount < 1 {
		permitCount = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.permits[endpoint]; exists {
		return
	}
	p.endpoints = append(p.endpoints, endpoint)
	p.permits[endpoint] = semaphore.NewWeighted(int64(permitCount))
}

// Unregister removes an endpoint from rotation. In-flight transfers holding
// the permit are unaffected; no new ones will be dispatched to it.
func (p *Pool) Unregister(endpoint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.permits, endpoint)
	for i, ep := range p.endpoints {
		if ep == endpoint {
			p.endpoints = append(p.endpoints[:i], p.endpoints[i+1:]...)
			break
		}
	}
}
