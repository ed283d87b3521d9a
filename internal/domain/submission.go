package domain

import "time"

// ContinuationToken lets an anonymous respondent resume a multi-page
// submission later. Owned 1:1 by the submission row; the value is unique
// across all submissions and never reused after replacement.
type ContinuationToken struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
func (t ContinuationToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Submission is a respondent's answer set for a form.
type Submission struct {
	ID           int64
	FormID       int64
	TenantID     int64
	Payload      map[string]any
	IsComplete   bool
	Continuation *ContinuationToken
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// SubmissionFile references a file attached to a submission field.
type SubmissionFile struct {
	ID           int64
	SubmissionID int64
	FieldKey     string
	StorageKey   string
	FileName     string
	MimeType     string
	SizeBytes    int64
	CreatedAt    time.Time
}
