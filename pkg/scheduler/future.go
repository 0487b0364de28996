package scheduler

import "context"

// Future holds the pending result of a unit of work.
type Future[T any] struct {
	c      <-chan Result[T]
	cancel context.CancelFunc
}

func newFuture[T any](c <-chan Result[T], cancel context.CancelFunc) *Future[T] {
	return &Future[T]{c: c, cancel: cancel}
}

// C returns the channel receiving the result. Exactly one value is sent.
func (f *Future[T]) C() <-chan Result[T] {
	return f.c
}

// Stop cancels the context of the work. The result is still delivered on C.
func (f *Future[T]) Stop() {
	f.cancel()
}
