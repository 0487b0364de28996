// Package errors provides custom error types for the guest-inspection-agent.
//
// Each error type includes a constructor, Error() method, and a type-checking
// helper using errors.As for proper error unwrapping.
//
// # Error Types Overview
//
//	┌──────────────────────────┬────────┬──────────────────────────────────────────┐
//	│ Error Type               │ HTTP   │ Description                              │
//	├──────────────────────────┼────────┼──────────────────────────────────────────┤
//	│ ResourceNotFoundError    │ 404    │ Machine or inspection record not found   │
//	│ NotSupportedError        │ -      │ Engine build lacks an optional feature   │
//	│ EngineError              │ -      │ Fatal attach/launch/discovery failure    │
//	│ InspectionTimeoutError   │ -      │ Per-machine time budget exceeded         │
//	│ InspectionPanicError     │ -      │ Panic recovered at the machine boundary  │
//	│ RemoteConnectionError    │ -      │ Local disk access on a remote connection │
//	└──────────────────────────┴────────┴──────────────────────────────────────────┘
//
// # NotSupportedError
//
// Older engine builds miss some inspection calls (product variant, icon,
// application listing). The inspector treats this error as the absence of
// the value and never fails the machine because of it:
//
//	variant, err := engine.GetProductVariant(ctx, root)
//	if errors.IsNotSupportedError(err) {
//	    variant = ""
//	}
//
// # EngineError
//
// Wraps the error of a step that is fatal for one machine (attach, launch,
// root discovery, metadata). Step names the failing step. The worker records
// the machine as failed and moves on to the next one.
//
// # Type Checking Pattern
//
// All error types provide Is* helper functions that use errors.As
// for proper error chain unwrapping:
//
//	wrapped := fmt.Errorf("loading domain: %w", errors.NewMachineNotFoundError(id))
//	errors.IsResourceNotFoundError(wrapped) // returns true
//
// # Handler Error Mapping
//
//	switch {
//	case errors.IsResourceNotFoundError(err):
//	    c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
//	}
package errors
