package bus

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by blocking consumers once their queue is closed.
var ErrClosed = errors.New("bus: queue closed")

// Queue is an unbounded FIFO. Push never blocks; Pop suspends until an item
// is available, the context is done, or the queue is closed.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool

	// notify holds at most one pending wakeup. A consumer that leaves items
	// behind re-arms it so other waiters are not stranded.
	notify chan struct{}
	done   chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends v. It reports false if the queue is closed and v was dropped.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.wake()
	return true
}

// Pop removes and returns the oldest item, blocking until one is available.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		v, ok, closed := q.tryPop()
		if ok {
			return v, nil
		}
		if closed {
			var zero T
			return zero, ErrClosed
		}
		select {
		case <-q.notify:
		case <-q.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryPop removes and returns the oldest item without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	v, ok, _ := q.tryPop()
	return v, ok
}

func (q *Queue[T]) tryPop() (v T, ok, closed bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return v, false, true
	}
	if len(q.items) == 0 {
		q.mu.Unlock()
		return v, false, false
	}
	v = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	more := len(q.items) > 0
	q.mu.Unlock()
	if more {
		q.wake()
	}
	return v, true, false
}

// Peek returns the oldest item without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// DrainAll atomically removes and returns every queued item in FIFO order.
func (q *Queue[T]) DrainAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close discards queued items and releases all blocked consumers.
// It returns the number of items discarded. Closing twice is a no-op.
func (q *Queue[T]) Close() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0
	}
	q.closed = true
	n := len(q.items)
	q.items = nil
	close(q.done)
	return n
}

func (q *Queue[T]) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
