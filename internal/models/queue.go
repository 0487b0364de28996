package models

// Queue is a FIFO queue backed by a slice. It is not safe for concurrent use.
type Queue[T any] []T

func (q *Queue[T]) Len() int { return len(*q) }

// Pop removes and returns the oldest element. The queue must not be empty.
func (q *Queue[T]) Pop() T {
	old := *q
	x := old[0]
	var zero T
	old[0] = zero
	*q = old[1:]
	return x
}

func (q *Queue[T]) Push(t T) {
	*q = append(*q, t)
}
