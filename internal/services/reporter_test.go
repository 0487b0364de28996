package services_test

import (
	"context"
	"database/sql"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	"github.com/kubev2v/guest-inspection-agent/internal/services"
	"github.com/kubev2v/guest-inspection-agent/internal/store"
	"github.com/kubev2v/guest-inspection-agent/internal/store/migrations"
)

func newTestStore(ctx context.Context) (*sql.DB, *store.Store) {
	db, err := store.NewDB(store.InMemory)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrations.Run(ctx, db)).To(Succeed())
	return db, store.NewStore(db)
}

var _ = Describe("Reporters", func() {
	var (
		ctx    context.Context
		result models.InspectionResult
	)

	BeforeEach(func() {
		ctx = context.Background()
		now := time.Now()
		result = models.InspectionResult{
			AttemptID:     "attempt-1",
			MachineID:     "vm-1",
			MachineName:   "web",
			ConnectionURI: "qemu:///system",
			Outcome:       models.InspectionOutcomeInspected,
			Root:          "/dev/sda1",
			OS:            &models.OSInfo{Type: "linux", Distro: "debian", MajorVersion: 12},
			Icon:          []byte("png"),
			StartedAt:     now,
			FinishedAt:    now.Add(time.Second),
		}
	})

	Context("LogReporter", func() {
		It("should accept every outcome", func() {
			r := services.NewLogReporter()
			Expect(r.Report(ctx, result)).To(Succeed())

			result.Outcome = models.InspectionOutcomeNoOS
			result.OS = nil
			Expect(r.Report(ctx, result)).To(Succeed())

			result.Outcome = models.InspectionOutcomeError
			result.Error = errLaunch
			Expect(r.Report(ctx, result)).To(Succeed())
		})
	})

	Context("StoreReporter", func() {
		var (
			db *sql.DB
			st *store.Store
		)

		BeforeEach(func() {
			db, st = newTestStore(ctx)
		})

		AfterEach(func() {
			db.Close()
		})

		It("should save the result", func() {
			Expect(services.NewStoreReporter(st).Report(ctx, result)).To(Succeed())

			saved, err := st.Inspection().Get(ctx, "vm-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.OS.Distro).To(Equal("debian"))
		})

		It("should save the result when the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Expect(services.NewStoreReporter(st).Report(cctx, result)).To(Succeed())
			_, err := st.Inspection().Get(ctx, "vm-1")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("MultiReporter", func() {
		It("should hand the result to every reporter and join the errors", func() {
			errA := errors.New("a")
			errB := errors.New("b")
			a := &fakeReporter{err: errA}
			b := &fakeReporter{}
			c := &fakeReporter{err: errB}

			err := services.NewMultiReporter(a, b, c).Report(ctx, result)
			Expect(err).To(MatchError(errA))
			Expect(err).To(MatchError(errB))

			for _, r := range []*fakeReporter{a, b, c} {
				Expect(r.Results()).To(HaveLen(1))
			}
		})

		It("should succeed when every reporter does", func() {
			Expect(services.NewMultiReporter(&fakeReporter{}, &fakeReporter{}).Report(ctx, result)).To(Succeed())
		})
	})
})
