package v1

import (
	"time"
)

// Defines values for InspectionOutcome.
const (
	InspectionOutcomeError     InspectionOutcome = "error"
	InspectionOutcomeInspected InspectionOutcome = "inspected"
	InspectionOutcomeNoOsFound InspectionOutcome = "no-os-found"
)

// Defines values for WorkerStatusState.
const (
	WorkerStatusStateDraining WorkerStatusState = "draining"
	WorkerStatusStateIdle     WorkerStatusState = "idle"
	WorkerStatusStateScanning WorkerStatusState = "scanning"
	WorkerStatusStateStarting WorkerStatusState = "starting"
	WorkerStatusStateStopped  WorkerStatusState = "stopped"
)

// Application defines model for Application.
type Application struct {
	DisplayName *string `json:"displayName,omitempty"`
	Name        string  `json:"name"`
	Release     *string `json:"release,omitempty"`
	Version     *string `json:"version,omitempty"`
}

// Error defines model for Error.
type Error struct {
	Error string `json:"error"`
}

// Inspection defines model for Inspection.
type Inspection struct {
	Applications       *[]Application    `json:"applications,omitempty"`
	AttemptId          string            `json:"attemptId"`
	ConnectionUri      string            `json:"connectionUri"`
	Error              *string           `json:"error,omitempty"`
	FilesystemsMounted bool              `json:"filesystemsMounted"`
	FinishedAt         time.Time         `json:"finishedAt"`
	HasIcon            bool              `json:"hasIcon"`
	MachineId          string            `json:"machineId"`
	MachineName        string            `json:"machineName"`
	Os                 *OsInfo           `json:"os,omitempty"`
	Outcome            InspectionOutcome `json:"outcome"`
	Root               *string           `json:"root,omitempty"`
	StartedAt          time.Time         `json:"startedAt"`
}

// InspectionOutcome defines model for Inspection.Outcome.
type InspectionOutcome string

// InspectionList defines model for InspectionList.
type InspectionList struct {
	Inspections []Inspection `json:"inspections"`
	Total       int          `json:"total"`
}

// OsInfo defines model for OsInfo.
type OsInfo struct {
	Distro         string  `json:"distro"`
	Hostname       string  `json:"hostname"`
	MajorVersion   int     `json:"majorVersion"`
	MinorVersion   int     `json:"minorVersion"`
	ProductName    string  `json:"productName"`
	ProductVariant *string `json:"productVariant,omitempty"`
	Type           string  `json:"type"`
}

// WorkerStatus defines model for WorkerStatus.
type WorkerStatus struct {
	Connections []string          `json:"connections"`
	Current     *string           `json:"current,omitempty"`
	LastScan    *time.Time        `json:"lastScan,omitempty"`
	Outcomes    map[string]int    `json:"outcomes"`
	Scans       int               `json:"scans"`
	Seen        int               `json:"seen"`
	State       WorkerStatusState `json:"state"`
}

// WorkerStatusState defines model for WorkerStatus.State.
type WorkerStatusState string

// ListInspectionsParams defines parameters for ListInspections.
type ListInspectionsParams struct {
	// Outcome keeps the records with one of these outcomes.
	Outcome *[]InspectionOutcome `form:"outcome,omitempty" json:"outcome,omitempty"`

	// Connection keeps the records produced on this connection URI.
	Connection *string `form:"connection,omitempty" json:"connection,omitempty"`

	// Filter is an expression like "os.distro = 'rhel' and applications ~ /httpd/".
	Filter *string `form:"filter,omitempty" json:"filter,omitempty"`

	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// ExportInspectionsParams defines parameters for ExportInspections.
type ExportInspectionsParams struct {
	Outcome    *[]InspectionOutcome `form:"outcome,omitempty" json:"outcome,omitempty"`
	Connection *string              `form:"connection,omitempty" json:"connection,omitempty"`
	Filter     *string              `form:"filter,omitempty" json:"filter,omitempty"`
}
