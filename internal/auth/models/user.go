// Package models holds the identity aggregates: employees and their login
// sessions.
package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
)

// User is an employee account. The password is stored only as a bcrypt hash
// and never serialized.
type User struct {
	ID           id.UserID `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Role         id.Role   `json:"role"`
	PasswordHash []byte    `json:"-"`

	// ExtraPermissions are granted on top of the role's defaults, e.g. a
	// senior cashier allowed to void without being a manager.
	ExtraPermissions []id.Permission `json:"extra_permissions,omitempty"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser validates and builds a user with a freshly hashed password. The
// validation message lists every violated rule.
func NewUser(userID id.UserID, username, name, password string, role id.Role, extra []id.Permission, now time.Time) (*User, error) {
	var violations []string
	username = strings.TrimSpace(username)
	if username == "" {
		violations = append(violations, "username must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		violations = append(violations, "name must not be empty")
	}
	if len(password) < 8 {
		violations = append(violations, "password must be at least 8 characters")
	}
	if _, err := id.ParseRole(role.String()); err != nil {
		violations = append(violations, "role must be admin, manager, or cashier")
	}
	if len(violations) > 0 {
		return nil, dErrors.New(dErrors.CodeValidation, strings.Join(violations, "; "))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return &User{
		ID:               userID,
		Username:         username,
		Name:             strings.TrimSpace(name),
		Role:             role,
		PasswordHash:     hash,
		ExtraPermissions: extra,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// CheckPassword compares a candidate password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}

// SetPassword replaces the stored hash.
func (u *User) SetPassword(password string, now time.Time) error {
	if len(password) < 8 {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	u.PasswordHash = hash
	u.UpdatedAt = now
	return nil
}

// EffectivePermissions is the role's default set plus the user's extra
// grants.
func (u *User) EffectivePermissions() id.PermissionSet {
	perms := id.DefaultPermissions(u.Role)
	for _, p := range u.ExtraPermissions {
		perms[p] = struct{}{}
	}
	return perms
}

// Clone returns a copy so stores never hand out shared slices.
func (u *User) Clone() *User {
	copied := *u
	copied.PasswordHash = append([]byte(nil), u.PasswordHash...)
	copied.ExtraPermissions = append([]id.Permission(nil), u.ExtraPermissions...)
	return &copied
}
