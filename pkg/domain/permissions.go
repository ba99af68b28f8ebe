package domain

import (
	"sort"
	"strings"

	dErrors "till/pkg/domain-errors"
)

// Permission is a "<resource>:<action>" capability string, e.g. "products:read".
type Permission string

func (p Permission) String() string { return string(p) }

// ParsePermission validates the resource:action shape.
func ParsePermission(s string) (Permission, error) {
	resource, action, ok := strings.Cut(s, ":")
	if !ok || resource == "" || action == "" {
		return "", dErrors.Newf(dErrors.CodeValidation, "permission %q must have the form resource:action", s)
	}
	return Permission(s), nil
}

// Known permissions, grouped by resource.
const (
	PermProductsRead   Permission = "products:read"
	PermProductsCreate Permission = "products:create"
	PermProductsUpdate Permission = "products:update"
	PermProductsDelete Permission = "products:delete"

	PermTransactionsRead   Permission = "transactions:read"
	PermTransactionsCreate Permission = "transactions:create"
	PermTransactionsUpdate Permission = "transactions:update"
	PermTransactionsVoid   Permission = "transactions:void"

	PermUsersRead   Permission = "users:read"
	PermUsersCreate Permission = "users:create"
	PermUsersUpdate Permission = "users:update"
	PermUsersDelete Permission = "users:delete"

	PermSettingsRead   Permission = "settings:read"
	PermSettingsUpdate Permission = "settings:update"
)

// PermissionSet is the caller's capability set. Route checks are
// subset-containment: the caller must hold every required permission.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from individual permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the permission.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAll reports whether the set contains every given permission.
func (s PermissionSet) HasAll(required ...Permission) bool {
	for _, p := range required {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Missing returns the required permissions absent from the set, sorted for
// stable error messages.
func (s PermissionSet) Missing(required ...Permission) []Permission {
	var missing []Permission
	for _, p := range required {
		if !s.Has(p) {
			missing = append(missing, p)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// Slice returns the permissions in sorted order, for token claims and JSON.
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy of the set.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Role is the coarse access tier a user belongs to. Each role maps to a
// default permission set; individual users may be granted or denied
// permissions on top of the default.
type Role string

func (r Role) String() string { return string(r) }

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleCashier:
		return Role(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown role %q", s)
}

// DefaultPermissions returns the permission set a role starts with.
func DefaultPermissions(role Role) PermissionSet {
	switch role {
	case RoleAdmin:
		return NewPermissionSet(
			PermProductsRead, PermProductsCreate, PermProductsUpdate, PermProductsDelete,
			PermTransactionsRead, PermTransactionsCreate, PermTransactionsUpdate, PermTransactionsVoid,
			PermUsersRead, PermUsersCreate, PermUsersUpdate, PermUsersDelete,
			PermSettingsRead, PermSettingsUpdate,
		)
	case RoleManager:
		return NewPermissionSet(
			PermProductsRead, PermProductsCreate, PermProductsUpdate,
			PermTransactionsRead, PermTransactionsCreate, PermTransactionsUpdate, PermTransactionsVoid,
			PermUsersRead,
			PermSettingsRead, PermSettingsUpdate,
		)
	case RoleCashier:
		return NewPermissionSet(
			PermProductsRead,
			PermTransactionsRead, PermTransactionsCreate, PermTransactionsUpdate,
			PermSettingsRead,
		)
	}
	return NewPermissionSet()
}
