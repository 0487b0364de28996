package guestfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Runner runs the guestfish binary and returns what it wrote to stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// CommandError is returned when guestfish exits with an error.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("guestfish %s: %s", strings.Join(e.Args, " "), msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// DefaultWaitDelay bounds how long a finished or cancelled guestfish may keep
// its output open through processes it left behind.
const DefaultWaitDelay = 5 * time.Second

// ExecRunner runs guestfish as a child process.
type ExecRunner struct {
	Path      string
	WaitDelay time.Duration
}

func NewExecRunner(path string) *ExecRunner {
	if path == "" {
		path = "guestfish"
	}
	return &ExecRunner{Path: path, WaitDelay: DefaultWaitDelay}
}

// Run waits for guestfish itself, not for the server that --listen forks.
// The server inherits stderr, so stderr goes to a file instead of a pipe.
func (r *ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	stderr, err := os.CreateTemp("", "guestfish-stderr-*")
	if err != nil {
		return nil, fmt.Errorf("creating guestfish stderr file: %w", err)
	}
	defer func() {
		_ = stderr.Close()
		_ = os.Remove(stderr.Name())
	}()

	var stdout bytes.Buffer

	cmd := exec.CommandContext(ctx, r.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = r.WaitDelay
	// error messages are matched in English
	cmd.Env = append(cmd.Environ(), "LC_ALL=C")

	err = cmd.Run()
	if errors.Is(err, exec.ErrWaitDelay) {
		// guestfish exited cleanly, only a leftover process held stdout
		err = nil
	}
	if err != nil {
		msg, _ := os.ReadFile(stderr.Name())
		return stdout.Bytes(), &CommandError{Args: args, Stderr: string(msg), Err: err}
	}
	return stdout.Bytes(), nil
}
