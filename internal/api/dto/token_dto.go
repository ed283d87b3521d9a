package dto

import "time"

// GenerateCapabilityTokenRequest payload.
type GenerateCapabilityTokenRequest struct {
	SubmissionID  int64    `json:"submission_id"`
	ExpiryMinutes int      `json:"expiry_minutes"`
	Permissions   []string `json:"permissions"`
}

// CapabilityTokenResponse response.
type CapabilityTokenResponse struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Permissions []string  `json:"permissions"`
}

// ValidateCapabilityTokenRequest payload.
type ValidateCapabilityTokenRequest struct {
	Token string `json:"token"`
}

// CapabilityClaimsResponse response for a valid token.
type CapabilityClaimsResponse struct {
	SubmissionID int64     `json:"submission_id"`
	Permissions  []string  `json:"permissions"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ContinuationTokenResponse response.
type ContinuationTokenResponse struct {
	Token string `json:"token"`
}

// ResolveContinuationTokenRequest payload.
type ResolveContinuationTokenRequest struct {
	Token string `json:"token"`
}

// ResolveContinuationTokenResponse response.
type ResolveContinuationTokenResponse struct {
	SubmissionID int64 `json:"submission_id"`
}
