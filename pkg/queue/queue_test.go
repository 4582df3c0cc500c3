package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmesh/vaultmesh/pkg/types"
)

func req(id string, sizeMB float64, arrival time.Time) *types.Request {
	return &types.Request{
		ID:        id,
		Operation: types.OperationUpload,
		SizeBytes: int64(sizeMB * 1024 * 1024),
		Arrival:   arrival,
	}
}

func TestQueueSmallestFirst(t *testing.T) {
	q := New()
	now := time.Now()

	q.Enqueue(req("big", 1000, now))
	q.Enqueue(req("small", 1, now))

	done := make(chan struct{})
	r, ok := q.Dequeue(done)
	require.True(t, ok)
	assert.Equal(t, "small", r.ID)

	r, ok = q.Dequeue(done)
	require.True(t, ok)
	assert.Equal(t, "big", r.ID)
}

// TestQueueAgingEventuallyWins reproduces E4 from spec.md §8: a big
// request queued first must eventually outrank newer small requests once
// its age term dominates its size term.
func TestQueueAgingEventuallyWins(t *testing.T) {
	q := NewWithAging(0.01)

	tBig := time.Now().Add(-200 * time.Second) // ~200,000ms old
	tSmall := time.Now()

	q.Enqueue(req("big", 1000, tBig))
	q.Enqueue(req("small_a", 1, tSmall))

	done := make(chan struct{})
	r, ok := q.Dequeue(done)
	require.True(t, ok)
	assert.Equal(t, "big", r.ID, "a sufficiently aged big request must outrank a fresh small one")
}

func TestQueueFCFSTieBreak(t *testing.T) {
	q := New()
	now := time.Now()

	q.Enqueue(req("first", 5, now))
	q.Enqueue(req("second", 5, now.Add(time.Millisecond)))

	done := make(chan struct{})
	r, _ := q.Dequeue(done)
	assert.Equal(t, "first", r.ID)
}

func TestQueueDequeueBlocksUntilEnqueue(t *testing.T) {
	q := New()
	done := make(chan struct{})
	result := make(chan *types.Request, 1)

	go func() {
		r, ok := q.Dequeue(done)
		if ok {
			result <- r
		}
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-result:
		t.Fatal("dequeue returned before any request was enqueued")
	default:
	}

	q.Enqueue(req("late", 1, time.Now()))

	select {
	case r := <-result:
		assert.Equal(t, "late", r.ID)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake after enqueue")
	}
}

func TestQueueDequeueCancelled(t *testing.T) {
	q := New()
	done := make(chan struct{})
	result := make(chan bool, 1)

	go func() {
		_, ok := q.Dequeue(done)
		result <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	close(done)

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not observe cancellation")
	}
}

func TestQueueSize(t *testing.T) {
	q := New()
	assert.Equal(t, 0, q.Size())
	q.Enqueue(req("a", 1, time.Now()))
	q.Enqueue(req("b", 1, time.Now()))
	assert.Equal(t, 2, q.Size())
}
