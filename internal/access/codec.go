package access

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// Capability permission names accepted by Generate and returned by Validate.
const (
	CapabilityView   = "view"
	CapabilityEdit   = "edit"
	CapabilityExport = "export"
)

// capabilityLetters fixes the wire alphabet and its canonical order.
var capabilityLetters = []struct {
	name string
	code byte
}{
	{CapabilityView, 'r'},
	{CapabilityEdit, 'w'},
	{CapabilityExport, 'x'},
}

var errTokenFormat = errors.New("malformed capability token")

// capabilityFields are the three signed fields of a capability token.
type capabilityFields struct {
	SubmissionID int64
	ExpiryMinute int64
	Codes        string
}

// payload renders the dot-joined signing input: submissionId.expiry.codes.
func (f capabilityFields) payload() string {
	return strconv.FormatInt(f.SubmissionID, 10) + "." +
		strconv.FormatInt(f.ExpiryMinute, 10) + "." +
		f.Codes
}

// signCapability computes the URL-safe unpadded base64 HMAC-SHA256 signature
// over the payload bytes.
func signCapability(payload string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// encodeCapability renders the full 4-field token string.
func encodeCapability(f capabilityFields, secret []byte) string {
	payload := f.payload()
	return payload + "." + signCapability(payload, secret)
}

// decodeCapability splits a token into its fields and supplied signature.
// Fails unless exactly 4 non-empty fields are produced, the first two parse
// as non-negative integers and the third uses only the permission alphabet.
func decodeCapability(token string) (capabilityFields, string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return capabilityFields{}, "", errTokenFormat
	}
	for _, part := range parts {
		if part == "" {
			return capabilityFields{}, "", errTokenFormat
		}
	}
	submissionID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || submissionID < 0 {
		return capabilityFields{}, "", errTokenFormat
	}
	expiryMinute, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || expiryMinute < 0 {
		return capabilityFields{}, "", errTokenFormat
	}
	if !validPermissionCodes(parts[2]) {
		return capabilityFields{}, "", errTokenFormat
	}
	fields := capabilityFields{
		SubmissionID: submissionID,
		ExpiryMinute: expiryMinute,
		Codes:        parts[2],
	}
	return fields, parts[3], nil
}

func validPermissionCodes(codes string) bool {
	for i := 0; i < len(codes); i++ {
		switch codes[i] {
		case 'r', 'w', 'x':
		default:
			return false
		}
	}
	return len(codes) > 0
}

// encodePermissionNames maps permission names to their letter codes in
// canonical order, deduplicated. Returns the codes, the normalized names in
// the same order, and any unrecognized names.
func encodePermissionNames(names []string) (codes string, normalized []string, invalid []string) {
	requested := make(map[string]struct{}, len(names))
	for _, name := range names {
		known := false
		for _, letter := range capabilityLetters {
			if name == letter.name {
				known = true
				break
			}
		}
		if !known {
			invalid = append(invalid, name)
			continue
		}
		requested[name] = struct{}{}
	}
	for _, letter := range capabilityLetters {
		if _, ok := requested[letter.name]; ok {
			codes += string(letter.code)
			normalized = append(normalized, letter.name)
		}
	}
	return codes, normalized, invalid
}

// decodePermissionCodes maps letter codes back to names, canonical order.
func decodePermissionCodes(codes string) []string {
	names := make([]string, 0, len(codes))
	for _, letter := range capabilityLetters {
		if strings.IndexByte(codes, letter.code) >= 0 {
			names = append(names, letter.name)
		}
	}
	return names
}
