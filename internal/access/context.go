package access

import "github.com/spec-kit/forms-service/internal/domain"

// AuthorizationContext is the resolved identity of the caller for one
// request. It is always passed explicitly; the core never reads ambient
// state. The zero value is an anonymous caller with no grants.
type AuthorizationContext struct {
	UserID          *int64
	TenantID        int64
	Roles           []string
	IsPlatformAdmin bool
	Grants          domain.PermissionSet
}

// HasPermission reports whether the caller's RBAC grants include p.
func (a AuthorizationContext) HasPermission(p domain.Permission) bool {
	return a.Grants.Has(p)
}

// Anonymous returns the context of an unauthenticated caller.
func Anonymous() AuthorizationContext {
	return AuthorizationContext{Grants: domain.NewPermissionSet()}
}
