package domain

import (
	"errors"
	"time"
)

// User is the core user entity. PasswordHash is opaque to everything except
// the credential hasher; identity (ID) is immutable, email and role are the
// only mutable fields.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Role is the coarse access level of a user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Validate validates the user for persistence. Returns an error describing the
// first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.Role == "" {
		u.Role = RoleMember
	}
	if !u.Role.Valid() {
		return errors.New("role must be admin or member")
	}
	return nil
}
