package libvirt_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	"github.com/kubev2v/guest-inspection-agent/pkg/libvirt"
)

type recordingNotifier struct {
	mu      sync.Mutex
	added   []string
	removed []string
	changes int
}

func (n *recordingNotifier) NotifyConnectionAdded(c models.Connection) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.added = append(n.added, c.URI())
}

func (n *recordingNotifier) NotifyConnectionRemoved(uri string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removed = append(n.removed, uri)
}

func (n *recordingNotifier) NotifyMachineListChanged() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes++
}

func (n *recordingNotifier) Added() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.added...)
}

func (n *recordingNotifier) Removed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.removed...)
}

func (n *recordingNotifier) Changes() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.changes
}

var _ = Describe("Watcher", func() {
	var (
		dir      string
		notifier *recordingNotifier
		cancel   context.CancelFunc
		errCh    chan error
	)

	start := func(domainDir string) *libvirt.Watcher {
		conn, err := libvirt.NewConnection("qemu:///system", domainDir)
		Expect(err).NotTo(HaveOccurred())

		w := libvirt.NewWatcher(conn, notifier)
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		errCh = make(chan error, 1)
		go func() {
			errCh <- w.Run(ctx)
		}()
		Eventually(w.Ready()).Should(BeClosed())
		return w
	}

	BeforeEach(func() {
		dir = filepath.Join(GinkgoT().TempDir(), "qemu")
		Expect(os.Mkdir(dir, 0o700)).To(Succeed())
		notifier = &recordingNotifier{}
	})

	AfterEach(func() {
		cancel()
		Eventually(errCh).Should(Receive(BeNil()))
	})

	It("should report new and changed domain definitions", func() {
		start(dir)

		path := writeDomain(dir, "web", "7a5cbb5e-30a8-4a0c-9a1a-8a6f5c38e0b1")
		Eventually(notifier.Changes).Should(BeNumerically(">=", 1))

		before := notifier.Changes()
		Expect(os.Remove(path)).To(Succeed())
		Eventually(notifier.Changes).Should(BeNumerically(">", before))
	})

	It("should ignore files that are not domain definitions", func() {
		start(dir)

		Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600)).To(Succeed())
		Consistently(notifier.Changes, "200ms").Should(BeZero())
	})

	It("should report the removal and the creation of the directory", func() {
		start(dir)

		Expect(os.RemoveAll(dir)).To(Succeed())
		Eventually(notifier.Removed).Should(ContainElement("qemu:///system"))

		Expect(os.Mkdir(dir, 0o700)).To(Succeed())
		Eventually(notifier.Added).Should(Equal([]string{"qemu:///system"}))

		writeDomain(dir, "web", "7a5cbb5e-30a8-4a0c-9a1a-8a6f5c38e0b1")
		Eventually(notifier.Changes).Should(BeNumerically(">=", 1))
	})

	It("should start before the directory exists", func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
		start(dir)

		Expect(os.Mkdir(dir, 0o700)).To(Succeed())
		Eventually(notifier.Added).Should(HaveLen(1))
	})
})
