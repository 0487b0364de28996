package guestfs_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	srvErrors "github.com/kubev2v/guest-inspection-agent/pkg/errors"
	"github.com/kubev2v/guest-inspection-agent/pkg/guestfs"
)

// guestfishScript stands in for guestfish. --listen forks a server the way
// libguestfs does: the parent prints the pid and exits, the server keeps
// running with stdout on /dev/null and the inherited stderr.
const guestfishScript = `#!/bin/sh
case "$1" in
--listen)
	( exec >/dev/null; exec sleep 60 ) &
	echo "GUESTFISH_PID=$!; export GUESTFISH_PID"
	;;
--listen-keep-stdout)
	( exec sleep 60 ) &
	echo "GUESTFISH_PID=$!; export GUESTFISH_PID"
	;;
--remote=*)
	pid=${1#--remote=}
	case "$3" in
	exit) kill "$pid" ;;
	launch) exec sleep 60 ;;
	inspect-os) echo /dev/sda2 ;;
	inspect-get-product-variant)
		echo "guestfish: unknown command: inspect-get-product-variant" >&2
		exit 1
		;;
	*)
		echo "libguestfs: error: $3: no such root" >&2
		exit 1
		;;
	esac
	;;
esac
`

var _ = Describe("ExecRunner", func() {
	var (
		ctx    context.Context
		runner *guestfs.ExecRunner
	)

	BeforeEach(func() {
		ctx = context.Background()

		path := filepath.Join(GinkgoT().TempDir(), "guestfish")
		Expect(os.WriteFile(path, []byte(guestfishScript), 0o755)).To(Succeed())

		runner = guestfs.NewExecRunner(path)
		// a server holding stderr must not delay the caller at all
		runner.WaitDelay = time.Minute
	})

	startEngine := func(ctx context.Context) *guestfs.Engine {
		type started struct {
			engine *guestfs.Engine
			err    error
		}
		c := make(chan started, 1)
		go func() {
			engine, err := guestfs.Start(ctx, runner)
			c <- started{engine, err}
		}()

		var s started
		Eventually(c, 5*time.Second).Should(Receive(&s))
		Expect(s.err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			Expect(s.engine.Close()).To(Succeed())
		})
		return s.engine
	}

	It("should return from Start while the forked server keeps running", func() {
		engine := startEngine(ctx)
		Expect(engine.PID()).NotTo(BeEmpty())

		roots, err := engine.InspectOS(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(roots).To(Equal([]string{"/dev/sda2"}))
	})

	It("should not wait longer than the wait delay for a process holding stdout", func() {
		runner.WaitDelay = 100 * time.Millisecond

		begin := time.Now()
		out, err := runner.Run(ctx, "--listen-keep-stdout")
		Expect(err).NotTo(HaveOccurred())
		Expect(time.Since(begin)).To(BeNumerically("<", 5*time.Second))
		Expect(string(out)).To(ContainSubstring("GUESTFISH_PID="))

		pid := regexp.MustCompile(`GUESTFISH_PID=(\d+)`).FindSubmatch(out)
		Expect(pid).To(HaveLen(2))
		_, err = runner.Run(ctx, "--remote="+string(pid[1]), "--", "exit")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should map unknown commands to not supported", func() {
		engine := startEngine(ctx)

		_, err := engine.GetProductVariant(ctx, "/dev/sda2")
		Expect(srvErrors.IsNotSupportedError(err)).To(BeTrue())
	})

	It("should keep the stderr of other failures", func() {
		engine := startEngine(ctx)

		_, err := engine.GetHostname(ctx, "/dev/sda9")
		Expect(err).To(MatchError(ContainSubstring("no such root")))
		Expect(srvErrors.IsNotSupportedError(err)).To(BeFalse())
	})

	It("should stop a remote call when the context is cancelled", func() {
		engine := startEngine(ctx)

		callCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()

		begin := time.Now()
		Expect(engine.Launch(callCtx)).NotTo(Succeed())
		Expect(time.Since(begin)).To(BeNumerically("<", 5*time.Second))
	})
})
