package guestfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	srvErrors "github.com/kubev2v/guest-inspection-agent/pkg/errors"
	"github.com/kubev2v/guest-inspection-agent/pkg/inspection"
)

const exitTimeout = 30 * time.Second

// Engine drives one guestfish server started with --listen. Every call is a
// guestfish --remote client invocation.
type Engine struct {
	runner Runner
	pid    string
	killFn func(pid int) error
	logger *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
}

// Start launches a guestfish server. The server must be released with Close.
func Start(ctx context.Context, runner Runner) (*Engine, error) {
	out, err := runner.Run(ctx, "--listen")
	if err != nil {
		return nil, fmt.Errorf("starting guestfish: %w", err)
	}

	pid, err := parsePID(out)
	if err != nil {
		return nil, fmt.Errorf("starting guestfish: %w", err)
	}

	return &Engine{
		runner: runner,
		pid:    pid,
		killFn: killProcess,
		logger: zap.S().Named("guestfs").With("pid", pid),
	}, nil
}

// NewEngineFactory returns a factory starting guestfish from path.
func NewEngineFactory(path string) inspection.EngineFactory {
	runner := NewExecRunner(path)
	return func(ctx context.Context) (inspection.Engine, error) {
		return Start(ctx, runner)
	}
}

func (e *Engine) remote(ctx context.Context, command string, args ...string) ([]byte, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%s: engine closed", command)
	}

	out, err := e.runner.Run(ctx, append([]string{"--remote=" + e.pid, "--", command}, args...)...)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && isUnknownCommand(cmdErr.Stderr) {
			return nil, srvErrors.NewNotSupportedError(command)
		}
		return nil, err
	}
	return out, nil
}

func (e *Engine) AddDriveReadOnly(ctx context.Context, path, format string) error {
	args := []string{path, "readonly:true"}
	if format != "" {
		args = append(args, "format:"+format)
	}
	_, err := e.remote(ctx, "add-drive-opts", args...)
	return err
}

func (e *Engine) Launch(ctx context.Context) error {
	_, err := e.remote(ctx, "launch")
	return err
}

func (e *Engine) InspectOS(ctx context.Context) ([]string, error) {
	out, err := e.remote(ctx, "inspect-os")
	if err != nil {
		return nil, err
	}
	return parseLines(out), nil
}

func (e *Engine) getString(ctx context.Context, command, root string) (string, error) {
	out, err := e.remote(ctx, command, root)
	if err != nil {
		return "", err
	}
	return parseString(out), nil
}

func (e *Engine) getInt(ctx context.Context, command, root string) (int, error) {
	out, err := e.remote(ctx, command, root)
	if err != nil {
		return 0, err
	}
	n, err := parseInt(out)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", command, err)
	}
	return n, nil
}

func (e *Engine) GetType(ctx context.Context, root string) (string, error) {
	return e.getString(ctx, "inspect-get-type", root)
}

func (e *Engine) GetDistro(ctx context.Context, root string) (string, error) {
	return e.getString(ctx, "inspect-get-distro", root)
}

func (e *Engine) GetMajorVersion(ctx context.Context, root string) (int, error) {
	return e.getInt(ctx, "inspect-get-major-version", root)
}

func (e *Engine) GetMinorVersion(ctx context.Context, root string) (int, error) {
	return e.getInt(ctx, "inspect-get-minor-version", root)
}

func (e *Engine) GetHostname(ctx context.Context, root string) (string, error) {
	return e.getString(ctx, "inspect-get-hostname", root)
}

func (e *Engine) GetProductName(ctx context.Context, root string) (string, error) {
	return e.getString(ctx, "inspect-get-product-name", root)
}

func (e *Engine) GetProductVariant(ctx context.Context, root string) (string, error) {
	return e.getString(ctx, "inspect-get-product-variant", root)
}

func (e *Engine) GetMountpoints(ctx context.Context, root string) ([]models.Mountpoint, error) {
	out, err := e.remote(ctx, "inspect-get-mountpoints", root)
	if err != nil {
		return nil, err
	}
	return parseMountpoints(out)
}

func (e *Engine) MountReadOnly(ctx context.Context, device, mountpoint string) error {
	_, err := e.remote(ctx, "mount-ro", device, mountpoint)
	return err
}

// GetIcon returns the raw icon bytes. guestfish writes buffers to stdout unchanged.
func (e *Engine) GetIcon(ctx context.Context, root string, opts inspection.IconOptions) ([]byte, error) {
	return e.remote(ctx, "inspect-get-icon", root,
		"favicon:"+strconv.FormatBool(opts.Favicon),
		"highquality:"+strconv.FormatBool(opts.HighQuality),
	)
}

func (e *Engine) ListApplications(ctx context.Context, root string) ([]models.Application, error) {
	out, err := e.remote(ctx, "inspect-list-applications2", root)
	if err != nil {
		return nil, err
	}
	return parseApplications(out)
}

// Close asks the server to exit. If it does not answer, the server is killed.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), exitTimeout)
	defer cancel()

	_, err := e.runner.Run(ctx, "--remote="+e.pid, "--", "exit")
	if err == nil {
		return nil
	}

	e.logger.Warnw("guestfish did not exit, killing it", "error", err)
	return e.kill()
}

func (e *Engine) kill() error {
	pid, err := strconv.Atoi(e.pid)
	if err != nil {
		return fmt.Errorf("invalid guestfish pid %q: %w", e.pid, err)
	}
	return e.killFn(pid)
}

func killProcess(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing guestfish %d: %w", pid, err)
	}
	return nil
}

var _ inspection.Engine = &Engine{}
