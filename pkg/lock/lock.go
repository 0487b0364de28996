package lock

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is the lock file created in the data folder.
const FileName = "agent.lock"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("lock held by another process")

// InstanceLock keeps a single agent running per data folder. It uses flock(2),
// so the lock is released by the kernel if the process dies. The lock file is
// never deleted.
type InstanceLock struct {
	fl *flock.Flock
}

// New returns the lock of the data folder dir.
func New(dir string) *InstanceLock {
	return &InstanceLock{fl: flock.New(filepath.Join(dir, FileName))}
}

func (l *InstanceLock) Path() string {
	return l.fl.Path()
}

// TryLock takes the lock without waiting.
func (l *InstanceLock) TryLock() error {
	locked, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire flock %s: %w", l.fl.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%s: %w", l.fl.Path(), ErrLocked)
	}
	return nil
}

func (l *InstanceLock) Unlock() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release flock %s: %w", l.fl.Path(), err)
	}
	return nil
}
