package work

import "sync"

// DefaultQueueSize is the bound used by the system's sensor queues.
const DefaultQueueSize = 10

// Queue is a bounded queue that favors freshness: when full, the newest
// item displaces the oldest instead of blocking the producer. Safe for
// concurrent producers and consumers.
type Queue[T any] struct {
	mu sync.Mutex
	ch chan T
}

// NewQueue returns a queue bounded to the given capacity.
func NewQueue[T any](size int) *Queue[T] {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue[T]{ch: make(chan T, size)}
}

// Put enqueues without blocking. On a full queue the oldest item is
// dropped to make room; stale sensor data is worse than lost sensor data
// for a robot still moving.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	select {
	case q.ch <- item:
		return
	default:
	}
	select {
	case <-q.ch:
	default:
	}
	select {
	case q.ch <- item:
	default:
	}
}

// TryNext dequeues without blocking, reporting whether an item was
// available.
func (q *Queue[T]) TryNext() (T, bool) {
	select {
	case item := <-q.ch:
		return item, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}
