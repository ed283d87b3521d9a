package domain

import "sort"

// Permission names an action on a form or submission.
type Permission string

const (
	PermissionFormView Permission = "Form.View"
	PermissionFormEdit Permission = "Form.Edit"

	PermissionSubmissionCreate     Permission = "Submission.Create"
	PermissionSubmissionView       Permission = "Submission.View"
	PermissionSubmissionEdit       Permission = "Submission.Edit"
	PermissionSubmissionViewFiles  Permission = "Submission.ViewFiles"
	PermissionSubmissionUploadFile Permission = "Submission.UploadFile"
	PermissionSubmissionDeleteFile Permission = "Submission.DeleteFile"
)

// PermissionSet is an unordered collection of granted permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Add inserts p into the set.
func (s PermissionSet) Add(perms ...Permission) {
	for _, p := range perms {
		s[p] = struct{}{}
	}
}

// Names returns the sorted permission names for stable output.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for p := range s {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}
