package logging

// Standardized attribute keys. Stages must use these instead of ad-hoc names
// so log queries stay stable across the pipeline.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldClientID  = "client_id"
	FieldMeetingID = "meeting_id"
	FieldChunk     = "chunk"
	FieldJobID     = "job_id"
	FieldTask      = "task"
	FieldRequestID = "request_id"
)
