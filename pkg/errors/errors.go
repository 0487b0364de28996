package errors

import (
	"errors"
	"fmt"
	"time"
)

// ResourceNotFoundError indicates a resource was not found.
type ResourceNotFoundError struct {
	Kind string
	ID   string
}

func NewResourceNotFoundError(kind, id string) *ResourceNotFoundError {
	return &ResourceNotFoundError{Kind: kind, ID: id}
}

func NewMachineNotFoundError(id string) *ResourceNotFoundError {
	return NewResourceNotFoundError("machine", id)
}

func NewInspectionNotFoundError(id string) *ResourceNotFoundError {
	return NewResourceNotFoundError("inspection", id)
}

func (e *ResourceNotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}

// NotSupportedError indicates the inspection engine does not provide a capability.
type NotSupportedError struct {
	Capability string
}

func NewNotSupportedError(capability string) *NotSupportedError {
	return &NotSupportedError{Capability: capability}
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s not supported by the inspection engine", e.Capability)
}

// IsNotSupportedError checks if the error is a NotSupportedError.
func IsNotSupportedError(err error) bool {
	var e *NotSupportedError
	return errors.As(err, &e)
}

// EngineError indicates a fatal inspection step failed.
type EngineError struct {
	Step string
	Err  error
}

func NewEngineError(step string, err error) *EngineError {
	return &EngineError{Step: step, Err: err}
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func IsEngineError(err error) bool {
	var e *EngineError
	return errors.As(err, &e)
}

// InspectionTimeoutError indicates a machine inspection exceeded its time budget.
type InspectionTimeoutError struct {
	MachineID string
	Timeout   time.Duration
}

func NewInspectionTimeoutError(machineID string, timeout time.Duration) *InspectionTimeoutError {
	return &InspectionTimeoutError{MachineID: machineID, Timeout: timeout}
}

func (e *InspectionTimeoutError) Error() string {
	return fmt.Sprintf("inspection of %s timed out after %s", e.MachineID, e.Timeout)
}

func IsInspectionTimeoutError(err error) bool {
	var e *InspectionTimeoutError
	return errors.As(err, &e)
}

// InspectionPanicError wraps a panic recovered while inspecting a machine.
type InspectionPanicError struct {
	Value any
}

func NewInspectionPanicError(v any) *InspectionPanicError {
	return &InspectionPanicError{Value: v}
}

func (e *InspectionPanicError) Error() string {
	return fmt.Sprintf("panic during inspection: %v", e.Value)
}

// RemoteConnectionError indicates an operation that needs local disk access was
// attempted on a remote connection.
type RemoteConnectionError struct {
	URI string
}

func NewRemoteConnectionError(uri string) *RemoteConnectionError {
	return &RemoteConnectionError{URI: uri}
}

func (e *RemoteConnectionError) Error() string {
	return fmt.Sprintf("connection %s is remote", e.URI)
}

func IsRemoteConnectionError(err error) bool {
	var e *RemoteConnectionError
	return errors.As(err, &e)
}
