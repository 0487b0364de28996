// Package inspection implements the per-machine inspection protocol on top of
// a disk image inspection engine.
package inspection

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	srvErrors "github.com/kubev2v/guest-inspection-agent/pkg/errors"
)

// Inspector inspects one machine at a time. Every call creates its own engine
// and releases it before returning.
type Inspector struct {
	newEngine EngineFactory
	logger    *zap.SugaredLogger
}

func NewInspector(factory EngineFactory) *Inspector {
	return &Inspector{
		newEngine: factory,
		logger:    zap.S().Named("machine_inspector"),
	}
}

// Inspect runs the inspection protocol against machine. It never returns an
// error: failures are reported through the result outcome.
func (i *Inspector) Inspect(ctx context.Context, conn models.Connection, machine models.Machine) models.InspectionResult {
	result := models.InspectionResult{
		AttemptID:   uuid.NewString(),
		MachineID:   machine.ID(),
		MachineName: machine.Name(),
		StartedAt:   time.Now(),
	}
	if conn != nil {
		result.ConnectionURI = conn.URI()
	}

	if err := i.inspect(ctx, machine, &result); err != nil {
		result.Outcome = models.InspectionOutcomeError
		result.Error = err
	}
	result.FinishedAt = time.Now()

	return result
}

func (i *Inspector) inspect(ctx context.Context, machine models.Machine, result *models.InspectionResult) error {
	engine, err := i.newEngine(ctx)
	if err != nil {
		return srvErrors.NewEngineError("create", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			i.logger.Warnw("failed to release inspection engine", "machine", machine.ID(), "error", err)
		}
	}()

	// Disks must be attached read-only: inspection never writes to the guest.
	attached := 0
	for _, disk := range machine.DiskDevices() {
		if !disk.Inspectable() {
			i.logger.Debugw("skipping disk", "machine", machine.ID(), "path", disk.Path, "type", disk.Type)
			continue
		}
		if err := engine.AddDriveReadOnly(ctx, disk.Path, disk.Format); err != nil {
			return srvErrors.NewEngineError("attach", fmt.Errorf("%s: %w", disk.Path, err))
		}
		attached++
	}
	i.logger.Debugw("disks attached", "machine", machine.ID(), "count", attached)

	if err := engine.Launch(ctx); err != nil {
		return srvErrors.NewEngineError("launch", err)
	}

	roots, err := engine.InspectOS(ctx)
	if err != nil {
		return srvErrors.NewEngineError("inspect-os", err)
	}
	if len(roots) == 0 {
		i.logger.Debugw("no operating systems found", "machine", machine.ID())
		result.Outcome = models.InspectionOutcomeNoOS
		return nil
	}

	// Multi-boot guests: the first root wins.
	root := roots[0]
	result.Root = root

	osInfo, err := i.readOSInfo(ctx, engine, root)
	if err != nil {
		return srvErrors.NewEngineError("metadata", err)
	}
	result.OS = osInfo
	result.Outcome = models.InspectionOutcomeInspected

	// Icon and applications need the guest filesystems, but a guest that
	// cannot be mounted still yields its metadata.
	result.FilesystemsMounted = i.mountFilesystems(ctx, engine, machine.ID(), root)
	if !result.FilesystemsMounted {
		return nil
	}

	icon, err := engine.GetIcon(ctx, root, IconOptions{Favicon: false, HighQuality: true})
	switch {
	case err == nil && len(icon) > 0:
		result.Icon = icon
	case err != nil && !srvErrors.IsNotSupportedError(err):
		i.logger.Warnw("failed to extract icon (ignored)", "machine", machine.ID(), "error", err)
	}

	apps, err := engine.ListApplications(ctx, root)
	switch {
	case err == nil:
		result.Applications = apps
	case !srvErrors.IsNotSupportedError(err):
		i.logger.Warnw("failed to list applications (ignored)", "machine", machine.ID(), "error", err)
	}

	return nil
}

func (i *Inspector) readOSInfo(ctx context.Context, engine Engine, root string) (*models.OSInfo, error) {
	info := &models.OSInfo{}

	strFields := []struct {
		name string
		get  func(context.Context, string) (string, error)
		dst  *string
	}{
		{"type", engine.GetType, &info.Type},
		{"distro", engine.GetDistro, &info.Distro},
		{"hostname", engine.GetHostname, &info.Hostname},
		{"product name", engine.GetProductName, &info.ProductName},
		{"product variant", engine.GetProductVariant, &info.ProductVariant},
	}
	for _, f := range strFields {
		v, err := f.get(ctx, root)
		if err != nil {
			if !srvErrors.IsNotSupportedError(err) {
				return nil, fmt.Errorf("reading %s: %w", f.name, err)
			}
			v = ""
		}
		*f.dst = v
	}

	intFields := []struct {
		name string
		get  func(context.Context, string) (int, error)
		dst  *int
	}{
		{"major version", engine.GetMajorVersion, &info.MajorVersion},
		{"minor version", engine.GetMinorVersion, &info.MinorVersion},
	}
	for _, f := range intFields {
		v, err := f.get(ctx, root)
		if err != nil {
			if !srvErrors.IsNotSupportedError(err) {
				return nil, fmt.Errorf("reading %s: %w", f.name, err)
			}
			v = 0
		}
		*f.dst = v
	}

	return info, nil
}

// mountFilesystems mounts the guest filesystems read-only, parents first.
// A failing mount is logged and skipped. It returns false only when the
// mountpoints could not be listed.
func (i *Inspector) mountFilesystems(ctx context.Context, engine Engine, machineID, root string) bool {
	mps, err := engine.GetMountpoints(ctx, root)
	if err != nil {
		i.logger.Warnw("failed to list mountpoints (ignored)", "machine", machineID, "error", err)
		return false
	}

	for _, mp := range SortMountpoints(mps) {
		if err := engine.MountReadOnly(ctx, mp.Device, mp.Path); err != nil {
			i.logger.Warnw("failed to mount filesystem (ignored)", "machine", machineID,
				"device", mp.Device, "mountpoint", mp.Path, "error", err)
		}
	}

	return true
}

// SortMountpoints returns mps ordered by mountpoint length, shortest first,
// so that a nested mountpoint is mounted after its parent.
func SortMountpoints(mps []models.Mountpoint) []models.Mountpoint {
	sorted := slices.Clone(mps)
	slices.SortStableFunc(sorted, func(a, b models.Mountpoint) int {
		return cmp.Compare(len(a.Path), len(b.Path))
	})
	return sorted
}
