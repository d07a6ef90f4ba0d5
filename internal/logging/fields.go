package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldInterviewID is the standardized structured logging key for interview identifiers.
	FieldInterviewID = "interview_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldIngestPath is the standardized structured logging key for evidence ingestion path labels.
	FieldIngestPath = "ingest_path"
	// FieldErrorKind is the standardized structured logging key for the classified error kind.
	FieldErrorKind = "error_kind"
	// FieldErrorOperation is the standardized structured logging key for the failing operation.
	FieldErrorOperation = "error_operation"
	// FieldErrorHint is the standardized structured logging key for operator next steps.
	FieldErrorHint = "error_hint"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)
