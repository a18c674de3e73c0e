package model

import "strings"

const (
	// RoleUser is the role of a standard user.
	RoleUser = "0"
	// RoleAdmin is the role of an administrator.
	RoleAdmin = "1"
)

// A User represents a database record.
type User struct {
	Base `msgpack:",inline" storm:"inline"`

	Name     string `msgpack:"name"     storm:"index"`
	Email    string `msgpack:"email"    storm:"unique"`
	Password string `msgpack:"password,omitempty"`
	Role     string `msgpack:"role"`
}

// NewUser returns a new user with default params.
func NewUser() *User {
	return &User{
		Role: RoleUser,
	}
}

// IsAdmin returns true if the user has the administrator role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail returns the form under which emails are stored and looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
