package models

import "time"

// InspectionOutcome is the result of a single machine inspection attempt.
type InspectionOutcome string

const (
	// InspectionOutcomeInspected - an operating system was found and its metadata read
	InspectionOutcomeInspected InspectionOutcome = "inspected"
	// InspectionOutcomeNoOS - the disks were readable but contain no operating system
	InspectionOutcomeNoOS InspectionOutcome = "no-os-found"
	// InspectionOutcomeError - a fatal step failed for this machine
	InspectionOutcomeError InspectionOutcome = "error"
)

func (o InspectionOutcome) Value() string {
	return string(o)
}

// OSInfo holds the metadata of the inspected root.
type OSInfo struct {
	Type         string // eg. linux
	Distro       string // eg. fedora
	MajorVersion int
	MinorVersion int
	Hostname     string
	ProductName  string
	// ProductVariant is empty when the engine cannot report it.
	ProductVariant string
}

// Application is an application installed in the guest.
type Application struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Release     string `json:"release,omitempty"`
}

// InspectionResult is the record produced by one inspection attempt.
type InspectionResult struct {
	AttemptID     string
	MachineID     string
	MachineName   string
	ConnectionURI string
	Outcome       InspectionOutcome
	Root          string
	OS            *OSInfo
	// FilesystemsMounted is true when the mount phase ran to completion,
	// even if some individual mounts failed.
	FilesystemsMounted bool
	// Icon is nil when no icon is available.
	Icon []byte
	// Applications is nil when the list could not be obtained.
	Applications []Application
	Error        error
	StartedAt    time.Time
	FinishedAt   time.Time
}

func (r InspectionResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Mountpoint pairs a guest mountpoint with the device mounted on it.
type Mountpoint struct {
	Path   string
	Device string
}
