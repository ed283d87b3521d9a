package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/forms-service/internal/domain"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	tm := NewTokenManager("session-secret", 60)
	user := &domain.User{
		ID:              9,
		TenantID:        2,
		Roles:           []domain.Role{domain.RoleFormDesigner},
		IsPlatformAdmin: true,
	}

	token, expiresAt, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(9), userID)
	assert.Equal(t, int64(2), claims.TenantID)
	assert.Equal(t, []domain.Role{domain.RoleFormDesigner}, claims.Roles)
	assert.True(t, claims.IsPlatformAdmin)
}

func TestTokenManagerRejectsForeignSecret(t *testing.T) {
	issuer := NewTokenManager("secret-one", 60)
	verifier := NewTokenManager("secret-two", 60)

	token, _, err := issuer.GenerateToken(&domain.User{ID: 1, TenantID: 1})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}
