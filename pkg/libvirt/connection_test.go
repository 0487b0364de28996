package libvirt_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	srvErrors "github.com/kubev2v/guest-inspection-agent/pkg/errors"
	"github.com/kubev2v/guest-inspection-agent/pkg/libvirt"
)

var _ = Describe("Connection", func() {
	var (
		ctx  context.Context
		dir  string
		conn *libvirt.Connection
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()

		var err error
		conn, err = libvirt.NewConnection("qemu:///system", dir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should list the uuids of the defined domains", func() {
		writeDomain(dir, "web", "7a5cbb5e-30a8-4a0c-9a1a-8a6f5c38e0b1")
		writeDomain(dir, "db", "0f3d2b71-93a5-4b0e-8a88-c1d2f0b9f7aa")

		ids, err := conn.ListMachineIDs(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]string{
			"0f3d2b71-93a5-4b0e-8a88-c1d2f0b9f7aa",
			"7a5cbb5e-30a8-4a0c-9a1a-8a6f5c38e0b1",
		}))
	})

	It("should skip invalid and unrelated files", func() {
		writeDomain(dir, "web", "7a5cbb5e-30a8-4a0c-9a1a-8a6f5c38e0b1")
		Expect(os.WriteFile(filepath.Join(dir, "broken.xml"), []byte("<domain>"), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, ".web.xml.swp"), []byte("x"), 0o600)).To(Succeed())
		Expect(os.Mkdir(filepath.Join(dir, "autostart"), 0o700)).To(Succeed())

		ids, err := conn.ListMachineIDs(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]string{"7a5cbb5e-30a8-4a0c-9a1a-8a6f5c38e0b1"}))
	})

	It("should report a domain defined twice once", func() {
		writeDomain(dir, "web", "7a5cbb5e-30a8-4a0c-9a1a-8a6f5c38e0b1")
		writeDomain(dir, "web-copy", "7a5cbb5e-30a8-4a0c-9a1a-8a6f5c38e0b1")

		ids, err := conn.ListMachineIDs(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(HaveLen(1))
	})

	It("should list nothing when the directory does not exist", func() {
		missing, err := libvirt.NewConnection("qemu:///system", filepath.Join(dir, "missing"))
		Expect(err).NotTo(HaveOccurred())

		ids, err := missing.ListMachineIDs(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(BeEmpty())
	})

	It("should return a machine by uuid", func() {
		writeDomain(dir, "web", "7a5cbb5e-30a8-4a0c-9a1a-8a6f5c38e0b1")

		m, err := conn.GetMachine(ctx, "7A5CBB5E-30A8-4A0C-9A1A-8A6F5C38E0B1")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Name()).To(Equal("web"))
		Expect(m.DiskDevices()).To(HaveLen(1))
		Expect(m.DiskDevices()[0].Path).To(Equal("/var/lib/libvirt/images/web.qcow2"))
	})

	It("should return not found for unknown machines", func() {
		_, err := conn.GetMachine(ctx, "0f3d2b71-93a5-4b0e-8a88-c1d2f0b9f7aa")
		Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())

		_, err = conn.GetMachine(ctx, "not-a-uuid")
		Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
	})

	It("should stop listing when the context is cancelled", func() {
		writeDomain(dir, "web", "7a5cbb5e-30a8-4a0c-9a1a-8a6f5c38e0b1")
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := conn.ListMachineIDs(cctx)
		Expect(err).To(MatchError(context.Canceled))
	})

	Context("remote", func() {
		It("should be registered as remote and refuse listing", func() {
			remote, err := libvirt.Open("qemu+ssh://root@hv1/system", "/etc/libvirt")
			Expect(err).NotTo(HaveOccurred())
			Expect(remote.IsLocal()).To(BeFalse())

			_, err = remote.ListMachineIDs(ctx)
			Expect(srvErrors.IsRemoteConnectionError(err)).To(BeTrue())
		})
	})

	Context("Open", func() {
		It("should resolve the domain directory of local connections", func() {
			c, err := libvirt.Open("qemu:///system", dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.IsLocal()).To(BeTrue())
			Expect(c.Dir()).To(Equal(filepath.Join(dir, "qemu")))
		})

		It("should fail on malformed uris", func() {
			_, err := libvirt.Open("::", dir)
			Expect(err).To(HaveOccurred())
		})
	})
})
