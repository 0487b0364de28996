package models

import "time"

// WorkerState represents the current state of the inspection worker.
type WorkerState string

const (
	// WorkerStateStarting - waiting for the warm-up delay to expire
	WorkerStateStarting WorkerState = "starting"
	// WorkerStateIdle - waiting for events
	WorkerStateIdle WorkerState = "idle"
	// WorkerStateDraining - applying queued events
	WorkerStateDraining WorkerState = "draining"
	// WorkerStateScanning - inspecting machines not seen yet
	WorkerStateScanning WorkerState = "scanning"
	// WorkerStateStopped - the worker returned after its context was cancelled
	WorkerStateStopped WorkerState = "stopped"
)

// WorkerStatus is a snapshot of the inspection worker.
type WorkerStatus struct {
	State       WorkerState
	Connections []string
	Seen        int
	Scans       int
	// Current is the machine under inspection, empty outside of a scan.
	Current  string
	LastScan time.Time
}
