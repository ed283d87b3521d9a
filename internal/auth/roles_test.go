package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/forms-service/internal/domain"
)

func TestGrantsForRoles(t *testing.T) {
	grants := GrantsForRoles([]domain.Role{domain.RoleReviewer})
	assert.True(t, grants.Has(domain.PermissionSubmissionView))
	assert.True(t, grants.Has(domain.PermissionSubmissionEdit))
	assert.False(t, grants.Has(domain.PermissionFormEdit))

	combined := GrantsForRoles([]domain.Role{domain.RoleReviewer, domain.RoleFormDesigner})
	assert.True(t, combined.Has(domain.PermissionFormEdit))

	assert.Empty(t, GrantsForRoles(nil))
}

func TestContextForUser(t *testing.T) {
	user := &domain.User{
		ID:       42,
		TenantID: 7,
		Roles:    []domain.Role{domain.RoleTenantAdmin},
	}
	authz := ContextForUser(user)

	assert.Equal(t, int64(42), *authz.UserID)
	assert.Equal(t, int64(7), authz.TenantID)
	assert.Equal(t, []string{"TENANT_ADMIN"}, authz.Roles)
	assert.False(t, authz.IsPlatformAdmin)
	assert.True(t, authz.HasPermission(domain.PermissionSubmissionDeleteFile))
}
