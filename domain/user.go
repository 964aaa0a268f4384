package domain

import "time"

// Role controls which management operations a user may perform.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleClient Role = "client"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleClient:
		return true
	}
	return false
}

// IsStaff reports whether r may manage catalog content.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleEditor
}

// Status is the account-level state of a user.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// User represents an account in the catalog.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

func (u *User) IsActive() bool {
	return u != nil && u.Status == StatusActive
}

func (u *User) IsSuspended() bool {
	return u != nil && u.Status == StatusSuspended
}

func (u *User) IsDeleted() bool {
	return u != nil && u.Status == StatusDeleted
}
