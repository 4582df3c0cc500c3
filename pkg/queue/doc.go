/*
Package queue implements the Request Queue described in spec.md §4.9: a
thread-safe priority queue ordered by a shortest-job-next score with an
aging term, guaranteeing starvation freedom.

# Architecture

	┌───────────────────────── Queue ─────────────────────────┐
	│                                                           │
	│  container/heap ordered by live score:                   │
	│      score(r, now) = size_mb(r) - age_ms(r, now) * alpha │
	│                                                           │
	│  Enqueue(r)      -> heap.Push, cond.Signal (non-blocking)│
	│  Dequeue(done)   -> cond.Wait until non-empty or done    │
	│  Size()          -> len(heap) snapshot                   │
	│                                                           │
	└─────────────────────────────────────────────────────────┘

Unlike a conventional container/heap use, the comparator recomputes each
item's score against the wall clock on every comparison instead of storing
a fixed priority, because a request's age term keeps moving while it sits
queued. This is the generalization of the teacher's events.Broker monitor
pattern (mutex-guarded state, condition signalling) from a fixed-message
wakeup to a score that must be re-evaluated at dequeue time.
*/
package queue
