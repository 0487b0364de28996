package guestfs_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	srvErrors "github.com/kubev2v/guest-inspection-agent/pkg/errors"
	"github.com/kubev2v/guest-inspection-agent/pkg/guestfs"
	"github.com/kubev2v/guest-inspection-agent/pkg/inspection"
)

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		runner *fakeRunner
		engine *guestfs.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		runner = newFakeRunner()

		var err error
		engine, err = guestfs.Start(ctx, runner)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("Start", func() {
		It("should read the server pid", func() {
			Expect(engine.PID()).To(Equal("4513"))
			Expect(runner.Calls()[0]).To(Equal([]string{"--listen"}))
		})

		It("should fail when guestfish prints no pid", func() {
			_, err := guestfs.Start(ctx, newFakeRunner().on("--listen", "nothing here\n"))
			Expect(err).To(MatchError(ContainSubstring("no GUESTFISH_PID")))
		})

		It("should fail when guestfish cannot start", func() {
			_, err := guestfs.Start(ctx, newFakeRunner().fail("--listen", "guestfish: cannot fork"))
			Expect(err).To(MatchError(ContainSubstring("cannot fork")))
		})
	})

	It("should attach drives read-only through the remote server", func() {
		Expect(engine.AddDriveReadOnly(ctx, "/images/a.qcow2", "qcow2")).To(Succeed())
		Expect(runner.LastCall()).To(Equal([]string{
			"--remote=4513", "--", "add-drive-opts", "/images/a.qcow2", "readonly:true", "format:qcow2",
		}))

		Expect(engine.AddDriveReadOnly(ctx, "/dev/vg/b", "")).To(Succeed())
		Expect(runner.LastCall()).To(Equal([]string{
			"--remote=4513", "--", "add-drive-opts", "/dev/vg/b", "readonly:true",
		}))
	})

	It("should list the roots", func() {
		runner.on("inspect-os", "/dev/sda2\n/dev/sdb1\n")
		roots, err := engine.InspectOS(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(roots).To(Equal([]string{"/dev/sda2", "/dev/sdb1"}))
	})

	It("should return no roots when nothing is found", func() {
		runner.on("inspect-os", "")
		roots, err := engine.InspectOS(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(roots).To(BeEmpty())
	})

	It("should read metadata", func() {
		runner.
			on("inspect-get-type", "linux\n").
			on("inspect-get-distro", "rhel\n").
			on("inspect-get-major-version", "9\n").
			on("inspect-get-minor-version", "4\n").
			on("inspect-get-product-name", "Red Hat Enterprise Linux 9.4 (Plow)\n")

		Expect(engine.GetType(ctx, "/dev/sda2")).To(Equal("linux"))
		Expect(engine.GetDistro(ctx, "/dev/sda2")).To(Equal("rhel"))
		Expect(engine.GetMajorVersion(ctx, "/dev/sda2")).To(Equal(9))
		Expect(engine.GetMinorVersion(ctx, "/dev/sda2")).To(Equal(4))
		Expect(engine.GetProductName(ctx, "/dev/sda2")).To(Equal("Red Hat Enterprise Linux 9.4 (Plow)"))
		Expect(runner.LastCall()).To(Equal([]string{"--remote=4513", "--", "inspect-get-product-name", "/dev/sda2"}))
	})

	It("should reject malformed versions", func() {
		runner.on("inspect-get-major-version", "nine\n")
		_, err := engine.GetMajorVersion(ctx, "/dev/sda2")
		Expect(err).To(MatchError(ContainSubstring("inspect-get-major-version")))
	})

	It("should map unknown commands to not supported", func() {
		runner.fail("inspect-get-product-variant", "guestfish: unknown command: inspect-get-product-variant")
		_, err := engine.GetProductVariant(ctx, "/dev/sda2")
		Expect(srvErrors.IsNotSupportedError(err)).To(BeTrue())

		runner.fail("inspect-list-applications2", "inspect-list-applications2: command not known, use -h to list all commands")
		_, err = engine.ListApplications(ctx, "/dev/sda2")
		Expect(srvErrors.IsNotSupportedError(err)).To(BeTrue())
	})

	It("should keep other failures", func() {
		runner.fail("launch", "libguestfs: error: could not create appliance")
		err := engine.Launch(ctx)
		Expect(err).To(MatchError(ContainSubstring("could not create appliance")))
		Expect(srvErrors.IsNotSupportedError(err)).To(BeFalse())
	})

	It("should read mountpoints", func() {
		runner.on("inspect-get-mountpoints", "/: /dev/sda2\n/boot: /dev/sda1\n/var/lib: /dev/vg/lib\n")
		mps, err := engine.GetMountpoints(ctx, "/dev/sda2")
		Expect(err).NotTo(HaveOccurred())
		Expect(mps).To(Equal([]models.Mountpoint{
			{Path: "/", Device: "/dev/sda2"},
			{Path: "/boot", Device: "/dev/sda1"},
			{Path: "/var/lib", Device: "/dev/vg/lib"},
		}))

		Expect(engine.MountReadOnly(ctx, "/dev/sda1", "/boot")).To(Succeed())
		Expect(runner.LastCall()).To(Equal([]string{"--remote=4513", "--", "mount-ro", "/dev/sda1", "/boot"}))
	})

	It("should pass icon options and return raw bytes", func() {
		runner.on("inspect-get-icon", "\x89PNG\r\n\x1a\n")
		icon, err := engine.GetIcon(ctx, "/dev/sda2", inspection.IconOptions{Favicon: false, HighQuality: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(icon).To(Equal([]byte("\x89PNG\r\n\x1a\n")))
		Expect(runner.LastCall()).To(Equal([]string{
			"--remote=4513", "--", "inspect-get-icon", "/dev/sda2", "favicon:false", "highquality:true",
		}))
	})

	It("should list applications", func() {
		runner.on("inspect-list-applications2", `[0] = {
  app2_name: bash
  app2_display_name: 
  app2_epoch: 0
  app2_version: 5.1.8
  app2_release: 6.el9
  app2_arch: x86_64
}
[1] = {
  app2_name: openssh-server
  app2_display_name: OpenSSH server
  app2_epoch: 0
  app2_version: 8.7p1
  app2_release: 38.el9
}
`)
		apps, err := engine.ListApplications(ctx, "/dev/sda2")
		Expect(err).NotTo(HaveOccurred())
		Expect(apps).To(Equal([]models.Application{
			{Name: "bash", Version: "5.1.8", Release: "6.el9"},
			{Name: "openssh-server", DisplayName: "OpenSSH server", Version: "8.7p1", Release: "38.el9"},
		}))
	})

	It("should read multi-line descriptions without losing track of the records", func() {
		runner.on("inspect-list-applications2", `[0] = {
  app2_name: jq
  app2_version: 1.6
  app2_description: Command-line JSON processor
jq is like sed for JSON:
  .foo = {
}
  app2_release: 17.el9
}
[1] = {
  app2_name: nano
  app2_description: A small text editor
[3] = {
  app2_version: 5.6.1
}
`)
		apps, err := engine.ListApplications(ctx, "/dev/sda2")
		Expect(err).NotTo(HaveOccurred())
		Expect(apps).To(Equal([]models.Application{
			{Name: "jq", Version: "1.6", Release: "17.el9"},
			{Name: "nano", Version: "5.6.1"},
		}))
	})

	Context("Close", func() {
		It("should ask the server to exit once", func() {
			Expect(engine.Close()).To(Succeed())
			Expect(engine.Close()).To(Succeed())

			exits := 0
			for _, call := range runner.Calls() {
				if call[len(call)-1] == "exit" {
					exits++
				}
			}
			Expect(exits).To(Equal(1))
		})

		It("should refuse calls after close", func() {
			Expect(engine.Close()).To(Succeed())
			Expect(engine.Launch(ctx)).To(MatchError(ContainSubstring("engine closed")))
		})

		It("should kill a server that does not exit", func() {
			runner.fail("exit", "guestfish: remote: connection refused")
			var killed int
			engine.SetKillFunc(func(pid int) error {
				killed = pid
				return nil
			})

			Expect(engine.Close()).To(Succeed())
			Expect(killed).To(Equal(4513))
		})
	})
})
