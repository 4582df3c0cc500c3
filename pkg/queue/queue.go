// Package queue implements the Request Queue: a thread-safe priority queue
// ordered by a shortest-job-next score with an aging term that guarantees
// starvation freedom. Smaller requests are preferred, but an old request's
// score eventually drops below any newer small request's.
package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/vaultmesh/vaultmesh/pkg/types"
)

// DefaultAging is the aging coefficient α used by Score when the queue is
// constructed with New rather than NewWithAging.
const DefaultAging = 0.01

// Score computes a request's priority at the instant it is called: smaller
// is more urgent. size_mb minus age_ms times the aging coefficient means
// smaller requests sort earlier, but age eventually dominates for any
// request regardless of size.
func Score(r *types.Request, aging float64, now time.Time) float64 {
	ageMS := float64(now.Sub(r.Arrival).Milliseconds())
	return r.SizeMB() - ageMS*aging
}

type item struct {
	req   *types.Request
	index int
}

// innerHeap orders items by their *live* score, recomputed against the
// wall clock on every comparison, since age keeps moving even while the
// item sits in the heap.
type innerHeap struct {
	items []*item
	aging float64
	now   func() time.Time
}

func (h innerHeap) Len() int { return len(h.items) }

func (h innerHeap) Less(i, j int) bool {
	// An aging coefficient of zero (the FCFS and ROUNDROBIN policies)
	// orders by arrival alone; size plays no part.
	if h.aging == 0 {
		return h.items[i].req.Arrival.Before(h.items[j].req.Arrival)
	}
	now := h.now()
	si := Score(h.items[i].req, h.aging, now)
	sj := Score(h.items[j].req, h.aging, now)
	if si != sj {
		return si < sj
	}
	// Tie-break on arrival time: ties break on arrival (FCFS among equals).
	return h.items[i].req.Arrival.Before(h.items[j].req.Arrival)
}

func (h innerHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *innerHeap) Push(x interface{}) {
	it := x.(*item)
	it.index = len(h.items)
	h.items = append(h.items, it)
}

func (h *innerHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return it
}

// Queue is the Request Queue: enqueue is non-blocking; dequeue blocks
// until a request is available, guarded by a mutex and condition variable
// (a monitor, per spec.md §5).
type Queue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	heap  *innerHeap
	closed bool
}

// New creates a Queue using DefaultAging and the real wall clock.
func New() *Queue {
	return NewWithAging(DefaultAging)
}

// NewWithAging creates a Queue with a custom aging coefficient, for tests
// that want to control how quickly age dominates size.
func NewWithAging(aging float64) *Queue {
	q := &Queue{heap: &innerHeap{aging: aging, now: time.Now}}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds a request to the queue and wakes one blocked dequeue.
// Non-blocking: it never waits on a lock indefinitely since the heap has
// no capacity bound.
func (q *Queue) Enqueue(r *types.Request) {
	q.mu.Lock()
	heap.Push(q.heap, &item{req: r})
	q.mu.Unlock()
	q.cond.Signal()
}

// NotifyNew wakes any goroutine blocked in Dequeue without adding a
// request, used to propagate cancellation or a shutdown signal through
// the same wait mechanism Dequeue uses.
func (q *Queue) NotifyNew() {
	q.cond.Broadcast()
}

// Dequeue blocks until a request is available or done is closed, then
// returns the highest-priority (lowest score) request. Returns ok=false if
// the queue was closed while waiting.
func (q *Queue) Dequeue(done <-chan struct{}) (*types.Request, bool) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-done:
			q.cond.Broadcast()
		case <-stop:
		}
	}()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.heap.Len() == 0 && !q.closed {
		select {
		case <-done:
			return nil, false
		default:
		}
		q.cond.Wait()
	}

	if q.heap.Len() == 0 {
		return nil, false
	}

	it := heap.Pop(q.heap).(*item)
	return it.req, true
}

// Close wakes every blocked Dequeue call and marks the queue closed; no
// further Dequeue call will block.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Size returns a snapshot of the number of queued requests.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}
