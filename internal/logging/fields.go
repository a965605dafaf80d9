package logging

// Standardized attribute keys shared across packages.
const (
	// FieldComponent identifies the subsystem emitting the record. The
	// console handler promotes it into the message prefix.
	FieldComponent = "component"

	// FieldEventType carries a machine-readable event label for WARN and
	// ERROR records.
	FieldEventType = "event_type"

	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"

	// FieldResumeID is the registry identifier of the resume a record
	// concerns (temporary or server-issued).
	FieldResumeID = "resume_id"

	// FieldRequestID correlates all records of one processing flow.
	FieldRequestID = "request_id"

	// FieldStage names the orchestrator stage in progress records.
	FieldStage = "stage"

	// FieldTarget names the delivery target handling an artifact.
	FieldTarget = "target"
)
