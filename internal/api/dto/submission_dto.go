package dto

import "time"

// CreateSubmissionRequest payload.
type CreateSubmissionRequest struct {
	Payload map[string]any `json:"payload"`
}

// PatchSubmissionRequest payload. Keys merge over existing answers.
type PatchSubmissionRequest struct {
	Payload map[string]any `json:"payload"`
}

// SubmissionResponse response.
type SubmissionResponse struct {
	ID          int64          `json:"id"`
	FormID      int64          `json:"form_id"`
	Payload     map[string]any `json:"payload"`
	IsComplete  bool           `json:"is_complete"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// SubmissionFileResponse metadata.
type SubmissionFileResponse struct {
	ID        int64     `json:"id"`
	FieldKey  string    `json:"field_key"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// AttachFileRequest payload.
type AttachFileRequest struct {
	FieldKey  string `json:"field_key"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}
