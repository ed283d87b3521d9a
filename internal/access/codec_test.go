package access

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCapabilityRejectsMalformedTokens(t *testing.T) {
	cases := map[string]string{
		"empty":              "",
		"too few fields":     "1.2.r",
		"too many fields":    "1.2.r.sig.extra",
		"empty field":        "1..r.sig",
		"non-numeric id":     "abc.2.r.sig",
		"negative id":        "-1.2.r.sig",
		"non-numeric expiry": "1.later.r.sig",
		"unknown letter":     "1.2.z.sig",
		"empty codes":        "1.2..sig",
		"uppercase codes":    "1.2.R.sig",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := decodeCapability(token)
			assert.ErrorIs(t, err, errTokenFormat)
		})
	}
}

func TestDecodeCapabilityRoundTrip(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	fields := capabilityFields{SubmissionID: 42, ExpiryMinute: 29500000, Codes: "rwx"}
	token := encodeCapability(fields, secret)

	decoded, signature, err := decodeCapability(token)
	require.NoError(t, err)
	assert.Equal(t, fields, decoded)
	assert.Equal(t, signCapability(fields.payload(), secret), signature)
}

func TestSignCapabilityIsDeterministicPerSecret(t *testing.T) {
	payload := "7.29500000.rw"
	first := signCapability(payload, []byte("0123456789abcdef0123456789abcdef"))
	second := signCapability(payload, []byte("0123456789abcdef0123456789abcdef"))
	other := signCapability(payload, []byte("fedcba9876543210fedcba9876543210"))

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
	assert.NotContains(t, first, "=")
}

func TestEncodePermissionNamesCanonicalOrder(t *testing.T) {
	codes, normalized, invalid := encodePermissionNames([]string{CapabilityExport, CapabilityView})
	assert.Empty(t, invalid)
	assert.Equal(t, "rx", codes)
	assert.Equal(t, []string{CapabilityView, CapabilityExport}, normalized)

	codes, normalized, invalid = encodePermissionNames([]string{CapabilityEdit, CapabilityEdit, CapabilityView})
	assert.Empty(t, invalid)
	assert.Equal(t, "rw", codes, "duplicates collapse")
	assert.Equal(t, []string{CapabilityView, CapabilityEdit}, normalized)
}

func TestEncodePermissionNamesReportsUnknown(t *testing.T) {
	_, _, invalid := encodePermissionNames([]string{CapabilityView, "admin", "delete"})
	assert.Equal(t, []string{"admin", "delete"}, invalid)
}

func TestDecodePermissionCodes(t *testing.T) {
	assert.Equal(t, []string{CapabilityView}, decodePermissionCodes("r"))
	assert.Equal(t, []string{CapabilityView, CapabilityEdit, CapabilityExport}, decodePermissionCodes("rwx"))
	// canonical order is restored regardless of input order
	assert.Equal(t, []string{CapabilityView, CapabilityExport}, decodePermissionCodes("xr"))
}

func TestValidPermissionCodes(t *testing.T) {
	assert.True(t, validPermissionCodes("r"))
	assert.True(t, validPermissionCodes("rwx"))
	assert.False(t, validPermissionCodes(""))
	assert.False(t, validPermissionCodes("rq"))
	assert.False(t, validPermissionCodes(strings.Repeat("y", 3)))
}
