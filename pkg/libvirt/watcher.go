package libvirt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
)

// Notifier receives the changes noticed on a connection.
type Notifier interface {
	NotifyConnectionAdded(c models.Connection)
	NotifyConnectionRemoved(uri string)
	NotifyMachineListChanged()
}

// Watcher follows the domain directory of a local connection.
//
// Changes to domain definitions are reported as a machine list change. The
// removal of the directory itself is reported as the removal of the connection,
// and its creation as the connection being added back.
type Watcher struct {
	conn     *Connection
	notifier Notifier
	ready    chan struct{}
	logger   *zap.SugaredLogger
}

func NewWatcher(conn *Connection, notifier Notifier) *Watcher {
	return &Watcher{
		conn:     conn,
		notifier: notifier,
		ready:    make(chan struct{}),
		logger:   zap.S().Named("libvirt_watcher").With("uri", conn.URI()),
	}
}

// Ready is closed once the watches are in place.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.conn.IsLocal() {
		return fmt.Errorf("cannot watch remote connection %s", w.conn.URI())
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer func() {
		if err := fw.Close(); err != nil {
			w.logger.Errorw("failed to close fs watcher", "error", err)
		}
	}()

	dir := filepath.Clean(w.conn.Dir())
	parent := filepath.Dir(dir)
	if err := fw.Add(parent); err != nil {
		return fmt.Errorf("failed to watch %s: %w", parent, err)
	}
	if err := fw.Add(dir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.logger.Infow("domain directory does not exist yet", "dir", dir)
	}

	close(w.ready)
	w.logger.Debugw("watching domain directory", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, dir, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Errorw("fs watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, dir string, event fsnotify.Event) {
	name := filepath.Clean(event.Name)

	switch {
	case name == dir:
		switch {
		case event.Has(fsnotify.Create):
			if err := fw.Add(dir); err != nil {
				w.logger.Errorw("failed to watch domain directory", "dir", dir, "error", err)
			}
			w.logger.Infow("domain directory created", "dir", dir)
			w.notifier.NotifyConnectionAdded(w.conn)
		case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
			w.logger.Infow("domain directory removed", "dir", dir)
			w.notifier.NotifyConnectionRemoved(w.conn.URI())
		}

	case filepath.Dir(name) == dir && IsDomainFile(filepath.Base(name)):
		if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
			event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			w.logger.Debugw("domain definition changed", "file", filepath.Base(name), "op", event.Op)
			w.notifier.NotifyMachineListChanged()
		}
	}
}
