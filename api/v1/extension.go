package v1

import (
	"github.com/kubev2v/guest-inspection-agent/internal/models"
)

func NewWorkerStatus(status models.WorkerStatus, outcomes map[models.InspectionOutcome]int) WorkerStatus {
	w := WorkerStatus{
		State:       NewWorkerStatusState(status.State),
		Connections: status.Connections,
		Seen:        status.Seen,
		Scans:       status.Scans,
		Outcomes:    make(map[string]int, len(outcomes)),
	}
	if w.Connections == nil {
		w.Connections = []string{}
	}
	if status.Current != "" {
		current := status.Current
		w.Current = &current
	}
	if !status.LastScan.IsZero() {
		last := status.LastScan
		w.LastScan = &last
	}
	for o, n := range outcomes {
		w.Outcomes[o.Value()] = n
	}
	return w
}

func NewWorkerStatusState(state models.WorkerState) WorkerStatusState {
	switch state {
	case models.WorkerStateIdle:
		return WorkerStatusStateIdle
	case models.WorkerStateDraining:
		return WorkerStatusStateDraining
	case models.WorkerStateScanning:
		return WorkerStatusStateScanning
	case models.WorkerStateStopped:
		return WorkerStatusStateStopped
	default:
		return WorkerStatusStateStarting
	}
}

// NewInspectionFromModel converts a record to its API form. The icon is
// served by its own endpoint and only flagged here.
func NewInspectionFromModel(r models.InspectionResult) Inspection {
	i := Inspection{
		AttemptId:          r.AttemptID,
		MachineId:          r.MachineID,
		MachineName:        r.MachineName,
		ConnectionUri:      r.ConnectionURI,
		Outcome:            InspectionOutcome(r.Outcome),
		FilesystemsMounted: r.FilesystemsMounted,
		HasIcon:            len(r.Icon) > 0,
		StartedAt:          r.StartedAt,
		FinishedAt:         r.FinishedAt,
	}

	if r.Root != "" {
		root := r.Root
		i.Root = &root
	}
	if r.OS != nil {
		i.Os = &OsInfo{
			Type:         r.OS.Type,
			Distro:       r.OS.Distro,
			MajorVersion: r.OS.MajorVersion,
			MinorVersion: r.OS.MinorVersion,
			Hostname:     r.OS.Hostname,
			ProductName:  r.OS.ProductName,
		}
		if r.OS.ProductVariant != "" {
			variant := r.OS.ProductVariant
			i.Os.ProductVariant = &variant
		}
	}
	if r.Applications != nil {
		apps := make([]Application, 0, len(r.Applications))
		for _, a := range r.Applications {
			apps = append(apps, NewApplicationFromModel(a))
		}
		i.Applications = &apps
	}
	if r.Error != nil {
		e := r.Error.Error()
		i.Error = &e
	}

	return i
}

func NewApplicationFromModel(a models.Application) Application {
	app := Application{Name: a.Name}
	if a.DisplayName != "" {
		app.DisplayName = &a.DisplayName
	}
	if a.Version != "" {
		app.Version = &a.Version
	}
	if a.Release != "" {
		app.Release = &a.Release
	}
	return app
}

func NewInspectionList(results []models.InspectionResult) InspectionList {
	l := InspectionList{
		Inspections: make([]Inspection, 0, len(results)),
		Total:       len(results),
	}
	for _, r := range results {
		l.Inspections = append(l.Inspections, NewInspectionFromModel(r))
	}
	return l
}

func (o InspectionOutcome) ToModel() models.InspectionOutcome {
	return models.InspectionOutcome(o)
}
