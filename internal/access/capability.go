package access

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

// MinSigningKeyLength is the smallest accepted capability signing secret.
const MinSigningKeyLength = 32

// ErrSigningKeyTooShort rejects construction with an undersized secret.
var ErrSigningKeyTooShort = errors.New("Signing key must be at least 32 characters.")

// Business results for capability validation. The invalid result is generic
// on purpose: it carries no detail about which check failed.
var (
	ErrCapabilityTokenInvalid = apperrors.NewDomainError(
		"CAPABILITY_TOKEN_INVALID", "Invalid capability token.", http.StatusBadRequest, nil)
	ErrCapabilityTokenExpired = apperrors.NewDomainError(
		"CAPABILITY_TOKEN_EXPIRED", "Capability token expired.", http.StatusBadRequest, nil)
)

// CapabilityToken is the result of Generate. The token string is the only
// artifact the caller holds; nothing is persisted.
type CapabilityToken struct {
	Token       string
	ExpiresAt   time.Time
	Permissions []string
}

// CapabilityClaims is the result of a successful Validate.
type CapabilityClaims struct {
	SubmissionID int64
	Permissions  []string
	ExpiresAt    time.Time
}

// CapabilityTokenService issues and validates stateless signed capability
// tokens over submissions. Safe for concurrent use.
type CapabilityTokenService struct {
	secret []byte
	now    func() time.Time
}

// NewCapabilityTokenService builds the service with the configured secret.
func NewCapabilityTokenService(secret string) (*CapabilityTokenService, error) {
	if len(secret) < MinSigningKeyLength {
		return nil, ErrSigningKeyTooShort
	}
	return &CapabilityTokenService{secret: []byte(secret), now: time.Now}, nil
}

// Generate signs a capability token for the submission with the requested
// permissions, expiring expiryMinutes from now (minute granularity).
func (s *CapabilityTokenService) Generate(submissionID int64, expiryMinutes int, permissionNames []string) (*CapabilityToken, error) {
	if submissionID <= 0 {
		return nil, apperrors.NewInvalidArgument("submission id must be positive, got %d", submissionID)
	}
	if expiryMinutes <= 0 {
		return nil, apperrors.NewInvalidArgument("expiry minutes must be positive, got %d", expiryMinutes)
	}
	if len(permissionNames) == 0 {
		return nil, apperrors.NewInvalidArgument("at least one permission name is required")
	}

	codes, normalized, invalid := encodePermissionNames(permissionNames)
	if len(invalid) > 0 {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unknown permission name(s): %s", strings.Join(invalid, ", ")),
			map[string]any{"permissions": invalid},
		)
	}

	expiryMinute := s.now().Unix()/60 + int64(expiryMinutes)
	fields := capabilityFields{
		SubmissionID: submissionID,
		ExpiryMinute: expiryMinute,
		Codes:        codes,
	}
	return &CapabilityToken{
		Token:       encodeCapability(fields, s.secret),
		ExpiresAt:   time.Unix(expiryMinute*60, 0).UTC(),
		Permissions: normalized,
	}, nil
}

// Validate checks the token and returns its claims. Malformed or tampered
// tokens fail with a generic invalid result; a structurally sound token past
// its expiry minute fails with a distinct expired result. A token is invalid
// at the instant it reaches its expiry minute.
func (s *CapabilityTokenService) Validate(token string) (*CapabilityClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.NewInvalidArgument("token must not be empty")
	}

	fields, signature, err := decodeCapability(token)
	if err != nil {
		return nil, ErrCapabilityTokenInvalid
	}
	expected := signCapability(fields.payload(), s.secret)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, ErrCapabilityTokenInvalid
	}
	if fields.ExpiryMinute <= s.now().Unix()/60 {
		return nil, ErrCapabilityTokenExpired
	}
	return &CapabilityClaims{
		SubmissionID: fields.SubmissionID,
		Permissions:  decodePermissionCodes(fields.Codes),
		ExpiresAt:    time.Unix(fields.ExpiryMinute*60, 0).UTC(),
	}, nil
}
