package auth

import (
	"github.com/spec-kit/forms-service/internal/access"
	"github.com/spec-kit/forms-service/internal/domain"
)

// rolePermissions maps each tenant role to its granted permissions.
var rolePermissions = map[domain.Role][]domain.Permission{
	domain.RoleTenantAdmin: {
		domain.PermissionFormView,
		domain.PermissionFormEdit,
		domain.PermissionSubmissionCreate,
		domain.PermissionSubmissionView,
		domain.PermissionSubmissionEdit,
		domain.PermissionSubmissionViewFiles,
		domain.PermissionSubmissionUploadFile,
		domain.PermissionSubmissionDeleteFile,
	},
	domain.RoleFormDesigner: {
		domain.PermissionFormView,
		domain.PermissionFormEdit,
		domain.PermissionSubmissionView,
	},
	domain.RoleReviewer: {
		domain.PermissionFormView,
		domain.PermissionSubmissionView,
		domain.PermissionSubmissionEdit,
		domain.PermissionSubmissionViewFiles,
	},
}

// GrantsForRoles flattens role assignments into a permission set.
func GrantsForRoles(roles []domain.Role) domain.PermissionSet {
	grants := domain.NewPermissionSet()
	for _, role := range roles {
		grants.Add(rolePermissions[role]...)
	}
	return grants
}

// ContextForUser builds the explicit authorization context the access
// resolver consumes.
func ContextForUser(user *domain.User) access.AuthorizationContext {
	roles := make([]string, len(user.Roles))
	for i, role := range user.Roles {
		roles[i] = string(role)
	}
	userID := user.ID
	return access.AuthorizationContext{
		UserID:          &userID,
		TenantID:        user.TenantID,
		Roles:           roles,
		IsPlatformAdmin: user.IsPlatformAdmin,
		Grants:          GrantsForRoles(user.Roles),
	}
}
