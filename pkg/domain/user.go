package domain

import "github.com/google/uuid"

// Role is the access level attached to a user.
type Role string

// The two roles a backend may assign.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Roles lists every known role.
var Roles = []Role{RoleUser, RoleAdmin}

// Valid returns true if r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// User is the identity of the authenticated caller.
// A User is never patched in place; a changed identity means a fresh resolution.
type User struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            Role      `json:"role"`
	IsEmailVerified bool      `json:"is_email_verified"`
}

// Clone returns a copy of u, or nil for a nil user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
