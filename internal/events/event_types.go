package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventFormPublished       EventType = "form_published"
	EventSubmissionCreated   EventType = "submission_created"
	EventSubmissionCompleted EventType = "submission_completed"
	EventSubmissionFileAdded EventType = "submission_file_added"
	EventContinuationIssued  EventType = "continuation_token_issued"
	EventSubmissionsExported EventType = "submissions_exported"
)

// Actor encapsulates actor metadata for an event. UserID is nil for
// anonymous respondents.
type Actor struct {
	UserID   *int64 `json:"user_id,omitempty"`
	TenantID int64  `json:"tenant_id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	FormID    int64       `json:"form_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// FormPublishedPayload payload.
type FormPublishedPayload struct {
	Version  int  `json:"version"`
	IsPublic bool `json:"is_public"`
}

// SubmissionCreatedPayload payload.
type SubmissionCreatedPayload struct {
	SubmissionID int64 `json:"submission_id"`
}

// SubmissionCompletedPayload payload.
type SubmissionCompletedPayload struct {
	SubmissionID int64 `json:"submission_id"`
	FieldCount   int   `json:"field_count"`
}

// SubmissionFileAddedPayload payload.
type SubmissionFileAddedPayload struct {
	SubmissionID int64  `json:"submission_id"`
	FileID       int64  `json:"file_id"`
	FileName     string `json:"file_name"`
	SizeBytes    int64  `json:"size_bytes"`
}

// SubmissionsExportedPayload payload.
type SubmissionsExportedPayload struct {
	Format string `json:"format"`
	Count  int    `json:"count"`
}
