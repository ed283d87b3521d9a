package domain

import "time"

// Tenant is an isolated customer account owning forms and submissions.
type Tenant struct {
	ID        int64
	Name      string
	Slug      string
	CreatedAt time.Time
}

// DefaultSubmissionTokenExpiryHours applies when a tenant has not overridden
// the continuation-token resume window.
const DefaultSubmissionTokenExpiryHours = 24

// TenantSettings holds tenant self-service policy, one row per tenant.
// Mutated by tenant administrators; read-only for the access core.
type TenantSettings struct {
	TenantID                            int64
	SubmissionTokenExpiryHours          *int
	SubmissionTokenValidAfterCompletion bool
	UpdatedAt                           time.Time
}

// TokenExpiryHours returns the configured resume window, falling back to
// fallbackHours when the tenant has not set one.
func (s *TenantSettings) TokenExpiryHours(fallbackHours int) int {
	if s != nil && s.SubmissionTokenExpiryHours != nil && *s.SubmissionTokenExpiryHours > 0 {
		return *s.SubmissionTokenExpiryHours
	}
	if fallbackHours > 0 {
		return fallbackHours
	}
	return DefaultSubmissionTokenExpiryHours
}
