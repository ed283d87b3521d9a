package domain

import "time"

// UserStatus enumerates account states.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusDisabled UserStatus = "DISABLED"
)

// Role names a tenant-scoped role bundle.
type Role string

const (
	RoleTenantAdmin  Role = "TENANT_ADMIN"
	RoleFormDesigner Role = "FORM_DESIGNER"
	RoleReviewer     Role = "REVIEWER"
)

// User is an authenticated account within a tenant.
type User struct {
	ID              int64
	TenantID        int64
	Name            string
	Email           string
	PasswordHash    string
	IsPlatformAdmin bool
	Status          UserStatus
	Roles           []Role
	CreatedAt       time.Time
}
