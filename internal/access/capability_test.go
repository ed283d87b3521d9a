package access

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/forms-service/pkg/util"
)

const testSigningSecret = "0123456789abcdef0123456789abcdef"

func newTestCapabilityService(t *testing.T, at time.Time) *CapabilityTokenService {
	t.Helper()
	svc, err := NewCapabilityTokenService(testSigningSecret)
	require.NoError(t, err)
	svc.now = func() time.Time { return at }
	return svc
}

func TestNewCapabilityTokenServiceRejectsShortSecret(t *testing.T) {
	for _, secret := range []string{"", "short", strings.Repeat("a", 31)} {
		_, err := NewCapabilityTokenService(secret)
		require.Error(t, err)
		assert.Equal(t, "Signing key must be at least 32 characters.", err.Error())
	}

	_, err := NewCapabilityTokenService(strings.Repeat("a", 32))
	assert.NoError(t, err)
}

func TestGenerateTokenShape(t *testing.T) {
	svc := newTestCapabilityService(t, time.Unix(1_700_000_040, 0))

	token, err := svc.Generate(123, 60, []string{CapabilityView, CapabilityEdit, CapabilityExport})
	require.NoError(t, err)

	parts := strings.Split(token.Token, ".")
	require.Len(t, parts, 4)
	assert.Equal(t, "123", parts[0])
	assert.Equal(t, "rwx", parts[2])
	assert.Equal(t, []string{CapabilityView, CapabilityEdit, CapabilityExport}, token.Permissions)

	single, err := svc.Generate(5, 10, []string{CapabilityView})
	require.NoError(t, err)
	assert.Equal(t, "r", strings.Split(single.Token, ".")[2])
}

func TestGenerateTokenCharset(t *testing.T) {
	svc := newTestCapabilityService(t, time.Unix(1_700_000_040, 0))
	for i := int64(1); i <= 50; i++ {
		token, err := svc.Generate(i, int(i)+1, []string{CapabilityView, CapabilityExport})
		require.NoError(t, err)
		assert.NotContains(t, token.Token, "+")
		assert.NotContains(t, token.Token, "/")
		assert.NotContains(t, token.Token, "=")
	}
}

func TestGenerateStructuralPreconditions(t *testing.T) {
	svc := newTestCapabilityService(t, time.Now())

	_, err := svc.Generate(0, 60, []string{CapabilityView})
	assert.True(t, apperrors.IsInvalidArgument(err))

	_, err = svc.Generate(-3, 60, []string{CapabilityView})
	assert.True(t, apperrors.IsInvalidArgument(err))

	_, err = svc.Generate(1, 0, []string{CapabilityView})
	assert.True(t, apperrors.IsInvalidArgument(err))

	_, err = svc.Generate(1, 60, nil)
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestGenerateUnknownPermissionIsBusinessResult(t *testing.T) {
	svc := newTestCapabilityService(t, time.Now())

	_, err := svc.Generate(1, 60, []string{CapabilityView, "superuser"})
	require.Error(t, err)
	assert.False(t, apperrors.IsInvalidArgument(err), "unknown names are a business outcome, not a fault")

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Contains(t, domainErr.Message, "superuser")
}

func TestValidateRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_040, 0)
	svc := newTestCapabilityService(t, now)

	token, err := svc.Generate(987, 120, []string{CapabilityExport, CapabilityView})
	require.NoError(t, err)

	claims, err := svc.Validate(token.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(987), claims.SubmissionID)
	assert.ElementsMatch(t, token.Permissions, claims.Permissions)
	assert.WithinDuration(t, token.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestValidateTamperSensitivity(t *testing.T) {
	svc := newTestCapabilityService(t, time.Unix(1_700_000_040, 0))

	token, err := svc.Generate(42, 60, []string{CapabilityView, CapabilityEdit})
	require.NoError(t, err)
	parts := strings.Split(token.Token, ".")

	tampered := []string{
		"43." + parts[1] + "." + parts[2] + "." + parts[3],            // submission id
		parts[0] + "." + parts[1] + ".rwx." + parts[3],                // widened permissions
		parts[0] + "." + parts[1] + "." + parts[2] + ".AAAA" + "BBBB", // signature
	}
	for _, candidate := range tampered {
		_, err := svc.Validate(candidate)
		assert.ErrorIs(t, err, ErrCapabilityTokenInvalid)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	issued := time.Unix(1_700_000_040, 0)
	svc := newTestCapabilityService(t, issued)

	token, err := svc.Generate(7, 5, []string{CapabilityView})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(4 * time.Minute) }
	_, err = svc.Validate(token.Token)
	assert.NoError(t, err, "one minute before expiry the token is valid")

	svc.now = func() time.Time { return issued.Add(5 * time.Minute) }
	_, err = svc.Validate(token.Token)
	assert.ErrorIs(t, err, ErrCapabilityTokenExpired, "invalid at the instant the expiry minute is reached")

	svc.now = func() time.Time { return issued.Add(6 * time.Minute) }
	_, err = svc.Validate(token.Token)
	assert.ErrorIs(t, err, ErrCapabilityTokenExpired)
}

func TestValidateCrossKeyIsolation(t *testing.T) {
	now := time.Unix(1_700_000_040, 0)
	first := newTestCapabilityService(t, now)

	second, err := NewCapabilityTokenService("fedcba9876543210fedcba9876543210")
	require.NoError(t, err)
	second.now = first.now

	token, err := first.Generate(11, 60, []string{CapabilityView})
	require.NoError(t, err)

	_, err = second.Validate(token.Token)
	assert.ErrorIs(t, err, ErrCapabilityTokenInvalid)
}

func TestValidateEmptyTokenIsFault(t *testing.T) {
	svc := newTestCapabilityService(t, time.Now())
	_, err := svc.Validate("  ")
	assert.True(t, apperrors.IsInvalidArgument(err))
}
