package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldExecutionID groups every batch of one top-level run
	FieldExecutionID = "execution_id"

	// FieldBatchIndex is the index of the batch within its execution
	FieldBatchIndex = "batch_index"

	// FieldProvider is the portal provider key
	FieldProvider = "provider"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldIdentifier is the invoice identifier being processed
	FieldIdentifier = "identifier"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
