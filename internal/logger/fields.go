package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldUploadID is the upload job being processed
	FieldUploadID = "upload_id"

	// FieldAttempt is the runner attempt number for an upload job
	FieldAttempt = "attempt"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Metric fields, attached per entry for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldChunk is the 1-based chunk sequence number within a run
	FieldChunk = "chunk"

	// FieldLine is the 1-based line of a row in the source file
	FieldLine = "line"

	// FieldProcessed is the running processed-records total
	FieldProcessed = "processed"

	// FieldFailed is the running failed-records total
	FieldFailed = "failed"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
