// Package eventqueue provides an unbounded multi-producer, single-consumer
// FIFO queue. Producers never block; the consumer can wait for the first
// item and then drain whatever is already queued without blocking.
package eventqueue

import (
	"context"
	"sync"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
)

type Queue[T any] struct {
	mu    sync.Mutex
	items models.Queue[T]
	// signal holds at most one pending wake-up for the consumer.
	signal chan struct{}
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		items:  models.Queue[T]{},
		signal: make(chan struct{}, 1),
	}
}

// Post appends item to the queue. It never blocks and is safe to call from any goroutine.
func (q *Queue[T]) Post(item T) {
	q.mu.Lock()
	q.items.Push(item)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Receive blocks until an item is available or ctx is done.
func (q *Queue[T]) Receive(ctx context.Context) (T, error) {
	for {
		if item, ok := q.TryReceive(); ok {
			return item, nil
		}

		select {
		case <-q.signal:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryReceive returns the oldest item, or false when the queue is empty.
func (q *Queue[T]) TryReceive() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 {
		var zero T
		return zero, false
	}
	return q.items.Pop(), true
}

// Drain blocks for the first item, then returns it together with every item
// already queued. A burst of posts is therefore consumed in one call.
func (q *Queue[T]) Drain(ctx context.Context) ([]T, error) {
	first, err := q.Receive(ctx)
	if err != nil {
		return nil, err
	}

	items := []T{first}
	for {
		item, ok := q.TryReceive()
		if !ok {
			return items, nil
		}
		items = append(items, item)
	}
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
