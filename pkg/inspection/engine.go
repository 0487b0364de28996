package inspection

import (
	"context"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
)

// IconOptions controls icon extraction.
type IconOptions struct {
	Favicon     bool
	HighQuality bool
}

// Engine is one instance of the disk image inspection engine. Optional calls
// return a NotSupportedError when the engine build lacks them.
type Engine interface {
	// AddDriveReadOnly attaches a disk image. Must be called before Launch.
	AddDriveReadOnly(ctx context.Context, path, format string) error
	Launch(ctx context.Context) error
	// InspectOS returns the root filesystems of the operating systems found.
	InspectOS(ctx context.Context) ([]string, error)

	GetType(ctx context.Context, root string) (string, error)
	GetDistro(ctx context.Context, root string) (string, error)
	GetMajorVersion(ctx context.Context, root string) (int, error)
	GetMinorVersion(ctx context.Context, root string) (int, error)
	GetHostname(ctx context.Context, root string) (string, error)
	GetProductName(ctx context.Context, root string) (string, error)
	GetProductVariant(ctx context.Context, root string) (string, error)

	GetMountpoints(ctx context.Context, root string) ([]models.Mountpoint, error)
	MountReadOnly(ctx context.Context, device, mountpoint string) error

	GetIcon(ctx context.Context, root string, opts IconOptions) ([]byte, error)
	ListApplications(ctx context.Context, root string) ([]models.Application, error)

	// Close releases the engine and every attached disk. It is idempotent.
	Close() error
}

// EngineFactory creates a fresh engine instance for one machine.
type EngineFactory func(ctx context.Context) (Engine, error)
