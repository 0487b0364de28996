package models

import "context"

// Disk types accepted by the inspection engine. Network disks and volumes
// are not reachable from the local filesystem.
const (
	DiskTypeBlock = "block"
	DiskTypeFile  = "file"
)

// DiskDevice is a disk attached to a machine definition.
type DiskDevice struct {
	Path string
	// Type is the libvirt disk type: block, file, network, volume...
	Type string
	// Format is the driver format hint (raw, qcow2...). Empty lets the engine probe.
	Format string
	// Device is what the guest sees: disk, cdrom, floppy or lun.
	Device string
}

// Inspectable reports whether the disk can be attached to the inspection engine.
func (d DiskDevice) Inspectable() bool {
	return (d.Type == DiskTypeBlock || d.Type == DiskTypeFile) && d.Path != ""
}

// Connection is a handle on a virtualization host. It is owned by the caller;
// the inspection worker only reads from it.
type Connection interface {
	// IsLocal reports whether disk images of this host are reachable from the local filesystem.
	IsLocal() bool
	URI() string
	ListMachineIDs(ctx context.Context) ([]string, error)
	GetMachine(ctx context.Context, id string) (Machine, error)
}

// Machine is a handle on one virtual machine definition.
type Machine interface {
	ID() string
	Name() string
	DiskDevices() []DiskDevice
}
