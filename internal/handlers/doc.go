// Package handlers implements the HTTP API layer for the guest-inspection-agent.
//
// Handlers expose the inspection worker state and the inspection records it
// produced. They delegate to the services layer and focus on parameter
// validation, response formatting, and HTTP semantics.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     HTTP Request (Gin)                          │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Handler (this package)                     │
//	│  - Parameter validation                                         │
//	│  - Error mapping to HTTP status codes                           │
//	│  - Model-to-API conversion                                      │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Services Layer                             │
//	│  InspectionWorker │ InspectionService                           │
//	└─────────────────────────────────────────────────────────────────┘
//
// The Handler implements v1.ServerInterface and is mounted with:
//
//	v1.RegisterHandlers(router, handler)
//
// # API Endpoints
//
//	┌────────┬──────────────────────────┬──────────────────────────────────────┐
//	│ Method │ Endpoint                 │ Description                          │
//	├────────┼──────────────────────────┼──────────────────────────────────────┤
//	│ GET    │ /inspector               │ Worker state and outcome counters    │
//	│ GET    │ /inspections             │ List records with filtering          │
//	│ GET    │ /inspections/export      │ Matching records as an xlsx workbook │
//	│ GET    │ /inspections/{id}        │ Record of one machine                │
//	│ GET    │ /inspections/{id}/icon   │ Guest icon (image/png)               │
//	└────────┴──────────────────────────┴──────────────────────────────────────┘
//
// # Inspector Handler
//
// GET /inspector - Returns the worker snapshot:
//
//	{
//	    "state": "idle",                       // starting|idle|draining|scanning|stopped
//	    "connections": ["qemu:///system"],
//	    "seen": 12,
//	    "scans": 3,
//	    "current": "9f1c...",                  // only while scanning
//	    "lastScan": "2026-03-01T10:00:00Z",
//	    "outcomes": {"inspected": 10, "error": 2}
//	}
//
// # Inspection Handlers
//
// GET /inspections - Lists records in the order they were produced.
//
// Query Parameters:
//
//	┌────────────┬──────────┬─────────────────────────────────────────────┐
//	│ Parameter  │ Type     │ Description                                 │
//	├────────────┼──────────┼─────────────────────────────────────────────┤
//	│ outcome    │ []string │ inspected, no-os-found, error (OR logic)    │
//	│ connection │ string   │ Connection URI that produced the record     │
//	│ filter     │ string   │ Filter expression (see pkg/filter)          │
//	│ limit      │ int      │ Maximum number of records (max: 1000)       │
//	└────────────┴──────────┴─────────────────────────────────────────────┘
//
// Example: /inspections?outcome=inspected&filter=os.distro = 'rhel' and applications ~ /httpd/
//
// GET /inspections/export accepts the same parameters except limit.
//
// # Error Handling
//
// Errors are returned as:
//
//	{ "error": "error message" }
//
//	┌─────────────────────────────┬────────┬──────────────────────────────┐
//	│ Error Type                  │ Status │ When                         │
//	├─────────────────────────────┼────────┼──────────────────────────────┤
//	│ Validation error            │ 400    │ Invalid outcome or limit     │
//	│ filter.ParseError           │ 400    │ Malformed filter expression  │
//	│ ResourceNotFoundError       │ 404    │ Machine never inspected      │
//	│ No icon                     │ 404    │ Record carries no icon       │
//	│ Internal error              │ 500    │ Unexpected service errors    │
//	└─────────────────────────────┴────────┴──────────────────────────────┘
package handlers
