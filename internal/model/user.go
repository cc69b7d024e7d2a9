// Package model defines domain entities for the application.
package model

import "time"

// Role represents a user's permission level.
type Role string

const (
	RoleUser       Role = "user"
	RoleSuperadmin Role = "superadmin"
)

// IsValid checks if the role is a known value.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleSuperadmin
}

// UserStatus represents a user's account standing.
type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusBanned UserStatus = "banned"
)

// IsValid checks if the status is a known value.
func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusBanned
}

// User represents an account that can submit downloads and redeem vouchers.
// PasswordHash and RefreshToken never leave the repository/auth layers.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	RefreshToken string     `json:"-"`
	DeletedAt    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsBanned returns true if the user may not use the service.
func (u *User) IsBanned() bool {
	return u.Status == UserStatusBanned
}

// Identity is the authenticated caller attached to a request context.
// It is built either from verified access token claims or, on token
// renewal, from the current user row.
type Identity struct {
	UserID   string     `json:"user_id"`
	Username string     `json:"username"`
	Role     Role       `json:"role"`
	Status   UserStatus `json:"status"`
}

// IsSuperadmin returns true if the identity carries the superadmin role.
func (i *Identity) IsSuperadmin() bool {
	return i.Role == RoleSuperadmin
}

// IsActive returns true if the identity's account is in good standing.
func (i *Identity) IsActive() bool {
	return i.Status == UserStatusActive
}
