package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
)

// Work is a unit of work executed by the scheduler. The context is cancelled
// when the future is stopped or the scheduler is closed.
type Work[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	Data T
	Err  error
}

type workRequest[T any] struct {
	fn     Work[T]
	c      chan Result[T]
	ctx    context.Context
	cancel context.CancelFunc
}

// Scheduler runs work on a fixed number of workers. Work waiting for a free
// worker is dispatched in FIFO order.
type Scheduler[T any] struct {
	idle       int
	workQueue  *models.Queue[workRequest[T]]
	work       chan workRequest[T]
	done       chan struct{}
	close      chan struct{}
	stopped    chan struct{}
	closeOnce  sync.Once
	running    sync.WaitGroup
	mainCtx    context.Context
	mainCancel context.CancelFunc
}

func NewScheduler[T any](nbWorkers int) *Scheduler[T] {
	if nbWorkers < 1 {
		nbWorkers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler[T]{
		idle:       nbWorkers,
		workQueue:  &models.Queue[workRequest[T]]{},
		work:       make(chan workRequest[T]),
		done:       make(chan struct{}),
		close:      make(chan struct{}),
		stopped:    make(chan struct{}),
		mainCtx:    ctx,
		mainCancel: cancel,
	}
	go s.run()
	return s
}

// AddWork queues w and returns a future resolved with its result.
// After Close the future resolves immediately with context.Canceled.
func (s *Scheduler[T]) AddWork(w Work[T]) *Future[T] {
	c := make(chan Result[T], 1)
	ctx, cancel := context.WithCancel(s.mainCtx)

	select {
	case s.work <- workRequest[T]{fn: w, c: c, ctx: ctx, cancel: cancel}:
	case <-s.stopped:
		cancel()
		c <- Result[T]{Err: context.Canceled}
	}

	return newFuture(c, cancel)
}

// Close cancels all work, fails the queued requests and waits for the
// running workers to return.
func (s *Scheduler[T]) Close() {
	s.closeOnce.Do(func() {
		s.mainCancel()
		close(s.close)
		<-s.stopped
		s.running.Wait()
	})
}

func (s *Scheduler[T]) run() {
	defer close(s.stopped)

	for {
		select {
		case w := <-s.work:
			s.workQueue.Push(w)
			s.dispatch()
		case <-s.done:
			s.idle++
			s.dispatch()
		case <-s.close:
			for s.workQueue.Len() > 0 {
				r := s.workQueue.Pop()
				r.cancel()
				r.c <- Result[T]{Err: context.Canceled}
			}
			return
		}
	}
}

func (s *Scheduler[T]) dispatch() {
	for s.idle > 0 && s.workQueue.Len() > 0 {
		s.idle--
		s.running.Add(1)
		go s.execute(s.workQueue.Pop())
	}
}

func (s *Scheduler[T]) execute(r workRequest[T]) {
	defer s.running.Done()
	defer func() {
		select {
		case s.done <- struct{}{}:
		case <-s.stopped:
		}
	}()

	result := call(r)
	r.cancel()
	r.c <- result
}

func call[T any](r workRequest[T]) (result Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			result = Result[T]{Err: fmt.Errorf("worker panicked: %v", p)}
		}
	}()

	if err := r.ctx.Err(); err != nil {
		return Result[T]{Err: err}
	}

	v, err := r.fn(r.ctx)
	return Result[T]{Data: v, Err: err}
}
