package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	srvErrors "github.com/kubev2v/guest-inspection-agent/pkg/errors"
	"github.com/kubev2v/guest-inspection-agent/pkg/eventqueue"
	"github.com/kubev2v/guest-inspection-agent/pkg/scheduler"
)

// DefaultWarmupDelay keeps the worker quiet while the host application starts.
const DefaultWarmupDelay = 15 * time.Second

// MachineInspector inspects a single machine. Failures are reported in the result.
type MachineInspector interface {
	Inspect(ctx context.Context, conn models.Connection, machine models.Machine) models.InspectionResult
}

// InspectionWorker discovers machines on the registered connections and
// inspects each of them once.
//
// Producers talk to the worker only through the event queue. The registry and
// the seen set are owned by the goroutine running Run.
type InspectionWorker struct {
	queue     *eventqueue.Queue[models.Event]
	scheduler *scheduler.Scheduler[models.InspectionResult]
	inspector MachineInspector
	reporter  Reporter
	registry  *ConnectionRegistry
	seen      *SeenSet

	warmup  time.Duration
	timeout time.Duration
	logger  *zap.SugaredLogger

	mu     sync.Mutex
	status models.WorkerStatus
}

func NewInspectionWorker(s *scheduler.Scheduler[models.InspectionResult], q *eventqueue.Queue[models.Event], inspector MachineInspector, reporter Reporter) *InspectionWorker {
	if reporter == nil {
		reporter = NewLogReporter()
	}
	return &InspectionWorker{
		queue:     q,
		scheduler: s,
		inspector: inspector,
		reporter:  reporter,
		registry:  NewConnectionRegistry(),
		seen:      NewSeenSet(),
		warmup:    DefaultWarmupDelay,
		logger:    zap.S().Named("inspection_worker"),
		status:    models.WorkerStatus{State: models.WorkerStateStarting},
	}
}

func (w *InspectionWorker) WithWarmupDelay(d time.Duration) *InspectionWorker {
	w.warmup = d
	return w
}

// WithMachineTimeout bounds the inspection of a single machine. Zero disables the bound.
func (w *InspectionWorker) WithMachineTimeout(d time.Duration) *InspectionWorker {
	w.timeout = d
	return w
}

// NotifyConnectionAdded tells the worker about a new connection. It never blocks.
func (w *InspectionWorker) NotifyConnectionAdded(c models.Connection) {
	w.queue.Post(models.NewConnectionAddedEvent(c))
}

// NotifyConnectionRemoved tells the worker a connection is gone. Unknown URIs are ignored.
func (w *InspectionWorker) NotifyConnectionRemoved(uri string) {
	w.queue.Post(models.NewConnectionRemovedEvent(uri))
}

// NotifyMachineListChanged wakes the worker up so that it scans the connections again.
func (w *InspectionWorker) NotifyMachineListChanged() {
	w.queue.Post(models.NewWakeUpEvent())
}

// Status returns a snapshot of the worker.
func (w *InspectionWorker) Status() models.WorkerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.status
	s.Connections = slices.Clone(w.status.Connections)
	return s
}

// Run is the worker loop. It returns when ctx is cancelled.
//
// On each iteration:
//  1. Block until at least one event is queued, then apply every queued event.
//  2. Scan all registered connections and inspect the machines not seen yet.
//
// A machine is marked as seen before its inspection starts, so a failing
// machine is never retried.
func (w *InspectionWorker) Run(ctx context.Context) {
	defer func() {
		w.setState(models.WorkerStateStopped)
		w.logger.Info("inspection worker stopped")
	}()

	w.setState(models.WorkerStateStarting)
	w.logger.Debugw("waiting before first scan", "delay", w.warmup)
	if w.warmup > 0 {
		timer := time.NewTimer(w.warmup)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}

	for {
		w.setState(models.WorkerStateIdle)
		w.logger.Debug("ready")

		events, err := w.queue.Drain(ctx)
		if err != nil {
			return
		}

		w.setState(models.WorkerStateDraining)
		for _, e := range events {
			w.apply(e)
		}
		uris := w.registry.URIs()
		w.updateStatus(func(s *models.WorkerStatus) {
			s.Connections = uris
		})

		w.setState(models.WorkerStateScanning)
		w.scan(ctx)

		if ctx.Err() != nil {
			return
		}
	}
}

func (w *InspectionWorker) apply(e models.Event) {
	switch e.Kind {
	case models.EventConnectionAdded:
		if e.Connection == nil {
			w.logger.Debug("ignoring nil connection")
			return
		}
		if !w.registry.Add(e.Connection) {
			w.logger.Debugw("ignoring remote connection", "uri", e.Connection.URI())
			return
		}
		w.logger.Infow("connection added", "uri", e.Connection.URI())
	case models.EventConnectionRemoved:
		if !w.registry.Remove(e.URI) {
			w.logger.Debugw("removal of unknown connection ignored", "uri", e.URI)
			return
		}
		w.logger.Infow("connection removed", "uri", e.URI)
	case models.EventWakeUp:
		// only wakes the worker up
	default:
		w.logger.Debugw("ignoring unknown event", "kind", e.Kind)
	}
}

// scan sees the registry as of the last drain. Connections added meanwhile
// are picked up by the next scan.
func (w *InspectionWorker) scan(ctx context.Context) {
	defer func() {
		w.updateStatus(func(s *models.WorkerStatus) {
			s.Current = ""
			s.Scans++
			s.LastScan = time.Now()
		})
	}()

	for _, conn := range w.registry.Connections() {
		ids, err := conn.ListMachineIDs(ctx)
		if err != nil {
			w.logger.Errorw("failed to list machines", "uri", conn.URI(), "error", err)
			continue
		}

		for _, id := range ids {
			if !w.seen.Add(id) {
				continue
			}

			seen := w.seen.Len()
			w.updateStatus(func(s *models.WorkerStatus) {
				s.Seen = seen
				s.Current = id
			})

			w.logger.Debugw("processing started", "machine", id, "uri", conn.URI())
			result := w.inspectMachine(ctx, conn, id)
			if err := w.reporter.Report(ctx, result); err != nil {
				w.logger.Errorw("failed to report inspection result", "machine", id, "error", err)
			}
			w.logger.Debugw("processing done", "machine", id, "outcome", result.Outcome, "duration", result.Duration())

			if ctx.Err() != nil {
				return
			}
		}
	}
}

// inspectMachine runs one inspection on the scheduler. When the time budget
// is exceeded the inspection is cancelled, and the call still waits for the
// engine to be released so that two sessions never overlap.
func (w *InspectionWorker) inspectMachine(ctx context.Context, conn models.Connection, id string) models.InspectionResult {
	started := time.Now()

	machine, err := conn.GetMachine(ctx, id)
	if err != nil {
		return failedResult(conn, id, started, err)
	}

	workCtx, cancel := ctx, context.CancelFunc(func() {})
	if w.timeout > 0 {
		workCtx, cancel = context.WithTimeout(ctx, w.timeout)
	}
	defer cancel()

	future := w.scheduler.AddWork(func(jobCtx context.Context) (result models.InspectionResult, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = srvErrors.NewInspectionPanicError(p)
			}
		}()
		return w.inspector.Inspect(jobCtx, conn, machine), nil
	})

	var r scheduler.Result[models.InspectionResult]
	select {
	case r = <-future.C():
	case <-workCtx.Done():
		future.Stop()
		r = <-future.C()
	}

	// An interrupted inspection may still report success once its optional
	// steps were cut short.
	if err := workCtx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = srvErrors.NewInspectionTimeoutError(id, w.timeout)
		}
		w.logger.Warnw("machine inspection interrupted", "machine", id, "error", err)

		result := r.Data
		if result.MachineID == "" {
			return failedResult(conn, id, started, err)
		}
		result.Outcome = models.InspectionOutcomeError
		result.Error = err
		return result
	}

	if r.Err != nil {
		return failedResult(conn, id, started, r.Err)
	}
	return r.Data
}

func failedResult(conn models.Connection, id string, started time.Time, err error) models.InspectionResult {
	return models.InspectionResult{
		AttemptID:     uuid.NewString(),
		MachineID:     id,
		ConnectionURI: conn.URI(),
		Outcome:       models.InspectionOutcomeError,
		Error:         err,
		StartedAt:     started,
		FinishedAt:    time.Now(),
	}
}

func (w *InspectionWorker) setState(s models.WorkerState) {
	w.updateStatus(func(status *models.WorkerStatus) {
		status.State = s
	})
}

func (w *InspectionWorker) updateStatus(fn func(s *models.WorkerStatus)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.status)
}
