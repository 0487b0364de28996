package services_test

import (
	"context"
	"errors"
	"runtime"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	"github.com/kubev2v/guest-inspection-agent/internal/services"
	srvErrors "github.com/kubev2v/guest-inspection-agent/pkg/errors"
	"github.com/kubev2v/guest-inspection-agent/pkg/eventqueue"
	"github.com/kubev2v/guest-inspection-agent/pkg/scheduler"
)

var _ = Describe("InspectionWorker", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		sched     *scheduler.Scheduler[models.InspectionResult]
		inspector *fakeInspector
		reporter  *fakeReporter
		worker    *services.InspectionWorker
		done      chan struct{}
	)

	start := func() {
		done = make(chan struct{})
		go func() {
			defer close(done)
			worker.Run(ctx)
		}()
	}

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		sched = scheduler.NewScheduler[models.InspectionResult](1)
		inspector = newFakeInspector()
		reporter = &fakeReporter{}
		worker = services.NewInspectionWorker(sched, eventqueue.New[models.Event](), inspector, reporter).
			WithWarmupDelay(0)
	})

	AfterEach(func() {
		cancel()
		if done != nil {
			Eventually(done).Should(BeClosed())
		}
		sched.Close()
	})

	Context("inspection", func() {
		It("should inspect every machine of a local connection", func() {
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-1", "vm-2"))
			start()

			Eventually(inspector.Inspected).Should(ConsistOf("vm-1", "vm-2"))
			Eventually(reporter.Results).Should(HaveLen(2))

			r, ok := reporter.Result("vm-1")
			Expect(ok).To(BeTrue())
			Expect(r.Outcome).To(Equal(models.InspectionOutcomeInspected))
			Expect(r.ConnectionURI).To(Equal("qemu:///system"))
		})

		It("should inspect a machine at most once", func() {
			conn := newLocalConnection("qemu:///system", "vm-1", "vm-2")
			worker.NotifyConnectionAdded(conn)
			start()

			Eventually(inspector.Inspected).Should(HaveLen(2))

			worker.NotifyMachineListChanged()
			Eventually(func() int { return worker.Status().Scans }).Should(BeNumerically(">=", 2))

			conn.addMachines("vm-3")
			worker.NotifyMachineListChanged()

			Eventually(inspector.Inspected).Should(Equal([]string{"vm-1", "vm-2", "vm-3"}))
			Consistently(inspector.Inspected, 200*time.Millisecond).Should(HaveLen(3))
			Expect(worker.Status().Seen).To(Equal(3))
		})

		It("should not inspect a machine twice when it shows up on two connections", func() {
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///session", "vm-1"))
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-1", "vm-2"))
			start()

			Eventually(inspector.Inspected).Should(HaveLen(2))
			Consistently(inspector.Inspected, 200*time.Millisecond).Should(ConsistOf("vm-1", "vm-2"))
		})

		It("should run one inspection at a time", func() {
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-1", "vm-2", "vm-3", "vm-4"))
			start()

			Eventually(inspector.Inspected).Should(HaveLen(4))
			Expect(inspector.MaxActive()).To(Equal(1))
		})
	})

	Context("connections", func() {
		It("should ignore remote connections", func() {
			worker.NotifyConnectionAdded(newRemoteConnection("qemu+ssh://root@host/system", "vm-1"))
			start()

			Eventually(func() int { return worker.Status().Scans }).Should(Equal(1))
			Consistently(inspector.Inspected, 200*time.Millisecond).Should(BeEmpty())
			Expect(worker.Status().Connections).To(BeEmpty())
		})

		It("should ignore a nil connection", func() {
			worker.NotifyConnectionAdded(nil)
			start()

			Eventually(func() int { return worker.Status().Scans }).Should(Equal(1))
			Expect(worker.Status().Connections).To(BeEmpty())
		})

		It("should stop scanning a removed connection", func() {
			conn := newLocalConnection("qemu:///system", "vm-1")
			worker.NotifyConnectionAdded(conn)
			start()

			Eventually(inspector.Inspected).Should(HaveLen(1))

			worker.NotifyConnectionRemoved("qemu:///system")
			conn.addMachines("vm-2")
			worker.NotifyMachineListChanged()

			Eventually(func() []string { return worker.Status().Connections }).Should(BeEmpty())
			Consistently(inspector.Inspected, 200*time.Millisecond).Should(Equal([]string{"vm-1"}))
		})

		It("should ignore the removal of an unknown connection", func() {
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-1"))
			worker.NotifyConnectionRemoved("qemu:///session")
			worker.NotifyConnectionRemoved("qemu:///session")
			start()

			Eventually(inspector.Inspected).Should(Equal([]string{"vm-1"}))
			Expect(worker.Status().Connections).To(Equal([]string{"qemu:///system"}))
		})

		It("should apply events in the order they were posted", func() {
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-1"))
			worker.NotifyConnectionRemoved("qemu:///system")
			start()

			Eventually(func() int { return worker.Status().Scans }).Should(Equal(1))
			Expect(inspector.Inspected()).To(BeEmpty())
		})

		It("should keep scanning other connections when listing fails", func() {
			broken := newLocalConnection("qemu:///session", "vm-1")
			broken.listErr = context.DeadlineExceeded
			worker.NotifyConnectionAdded(broken)
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-2"))
			start()

			Eventually(inspector.Inspected).Should(Equal([]string{"vm-2"}))
		})
	})

	Context("failures", func() {
		It("should isolate a failing machine and never retry it", func() {
			inspector.failures["vm-a"] = errLaunch
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-a", "vm-b"))
			start()

			Eventually(reporter.Results).Should(HaveLen(2))

			a, _ := reporter.Result("vm-a")
			Expect(a.Outcome).To(Equal(models.InspectionOutcomeError))
			Expect(a.Error).To(MatchError(errLaunch))

			b, _ := reporter.Result("vm-b")
			Expect(b.Outcome).To(Equal(models.InspectionOutcomeInspected))

			worker.NotifyMachineListChanged()
			Consistently(inspector.Inspected, 200*time.Millisecond).Should(Equal([]string{"vm-a", "vm-b"}))
		})

		It("should survive a panicking inspection", func() {
			inspector.panics["vm-a"] = true
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-a", "vm-b"))
			start()

			Eventually(reporter.Results).Should(HaveLen(2))

			a, _ := reporter.Result("vm-a")
			Expect(a.Outcome).To(Equal(models.InspectionOutcomeError))
			var panicErr *srvErrors.InspectionPanicError
			Expect(errors.As(a.Error, &panicErr)).To(BeTrue())
			Expect(panicErr.Value).To(Equal("engine crashed"))
		})

		It("should report a machine that disappeared before its inspection", func() {
			conn := &vanishingConnection{fakeConnection: newLocalConnection("qemu:///system", "vm-1")}
			worker.NotifyConnectionAdded(conn)
			start()

			Eventually(reporter.Results).Should(HaveLen(1))
			r := reporter.Results()[0]
			Expect(r.Outcome).To(Equal(models.InspectionOutcomeError))
			Expect(srvErrors.IsResourceNotFoundError(r.Error)).To(BeTrue())
			Expect(inspector.Inspected()).To(BeEmpty())
		})

		It("should keep going when the reporter fails", func() {
			reporter.err = errLaunch
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-1", "vm-2"))
			start()

			Eventually(inspector.Inspected).Should(HaveLen(2))
		})

		It("should give up on a machine exceeding its time budget", func() {
			worker.WithMachineTimeout(50 * time.Millisecond)
			inspector.blocking["vm-slow"] = true
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-slow", "vm-fast"))
			start()

			Eventually(reporter.Results).Should(HaveLen(2))

			slow, _ := reporter.Result("vm-slow")
			Expect(slow.Outcome).To(Equal(models.InspectionOutcomeError))
			Expect(srvErrors.IsInspectionTimeoutError(slow.Error)).To(BeTrue())

			fast, _ := reporter.Result("vm-fast")
			Expect(fast.Outcome).To(Equal(models.InspectionOutcomeInspected))
			Expect(inspector.MaxActive()).To(Equal(1))
		})

		It("should record the timeout when an interrupted inspection still succeeds", func() {
			worker.WithMachineTimeout(50 * time.Millisecond)
			inspector.degrading["vm-1"] = true
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-1"))
			start()

			Eventually(reporter.Results).Should(HaveLen(1))

			result, _ := reporter.Result("vm-1")
			Expect(result.Outcome).To(Equal(models.InspectionOutcomeError))
			Expect(srvErrors.IsInspectionTimeoutError(result.Error)).To(BeTrue())
			Expect(result.OS).NotTo(BeNil())
			Expect(result.AttemptID).To(Equal("attempt-vm-1"))
		})
	})

	Context("events", func() {
		It("should coalesce queued events into a single scan", func() {
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-1"))
			for range 5 {
				worker.NotifyMachineListChanged()
			}
			start()

			Eventually(func() int { return worker.Status().Scans }).Should(Equal(1))
			Consistently(func() int { return worker.Status().Scans }, 200*time.Millisecond).Should(Equal(1))
		})

		It("should coalesce a burst posted while idle into a single scan", func() {
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-1"))
			start()

			Eventually(func() int { return worker.Status().Scans }).Should(Equal(1))
			Eventually(func() models.WorkerState { return worker.Status().State }).Should(Equal(models.WorkerStateIdle))

			// on a single P the woken worker only runs once the burst is posted
			procs := runtime.GOMAXPROCS(1)
			DeferCleanup(func() { runtime.GOMAXPROCS(procs) })
			for range 5 {
				worker.NotifyMachineListChanged()
			}

			Eventually(func() int { return worker.Status().Scans }).Should(Equal(2))
			Consistently(func() int { return worker.Status().Scans }, 200*time.Millisecond).Should(Equal(2))
			Expect(inspector.Inspected()).To(Equal([]string{"vm-1"}))
		})

		It("should stay idle until an event arrives", func() {
			start()

			Eventually(func() models.WorkerState { return worker.Status().State }).Should(Equal(models.WorkerStateIdle))
			Consistently(func() int { return worker.Status().Scans }, 200*time.Millisecond).Should(BeZero())
		})
	})

	Context("lifecycle", func() {
		It("should wait for the warm-up delay before the first scan", func() {
			worker.WithWarmupDelay(300 * time.Millisecond)
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-1"))
			start()

			Consistently(inspector.Inspected, 150*time.Millisecond).Should(BeEmpty())
			Expect(worker.Status().State).To(Equal(models.WorkerStateStarting))
			Eventually(inspector.Inspected).Should(HaveLen(1))
		})

		It("should stop during the warm-up delay", func() {
			worker.WithWarmupDelay(time.Hour)
			start()

			cancel()
			Eventually(done).Should(BeClosed())
			Expect(worker.Status().State).To(Equal(models.WorkerStateStopped))
		})

		It("should stop while idle", func() {
			start()
			Eventually(func() models.WorkerState { return worker.Status().State }).Should(Equal(models.WorkerStateIdle))

			cancel()
			Eventually(done).Should(BeClosed())
			Expect(worker.Status().State).To(Equal(models.WorkerStateStopped))
		})

		It("should stop in the middle of a scan", func() {
			inspector.blocking["vm-1"] = true
			worker.NotifyConnectionAdded(newLocalConnection("qemu:///system", "vm-1", "vm-2"))
			start()

			Eventually(inspector.Inspected).Should(HaveLen(1))
			Expect(worker.Status().Current).To(Equal("vm-1"))

			cancel()
			Eventually(done).Should(BeClosed())
			Expect(inspector.Inspected()).To(Equal([]string{"vm-1"}))
		})
	})
})

// vanishingConnection lists machines it cannot return.
type vanishingConnection struct {
	*fakeConnection
}

func (c *vanishingConnection) GetMachine(_ context.Context, id string) (models.Machine, error) {
	return nil, srvErrors.NewMachineNotFoundError(id)
}
