package domain

import "time"

// Role enumerates the privilege levels a chat user can hold.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a chat participant, created on first contact.
type User struct {
	ID          int64
	DisplayName string
	Handle      *string
	Role        Role
	CreatedAt   time.Time
}

// IsAdmin reports whether the user may moderate listings.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HandleOrEmpty returns the public handle or "" when the user has none.
func (u *User) HandleOrEmpty() string {
	if u == nil || u.Handle == nil {
		return ""
	}
	return *u.Handle
}
