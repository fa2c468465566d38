// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

/*
Package identity holds the user account entity and its persistence
contract.

Accounts move through an approval workflow (pending → active, or
pending → rejected) and can later be suspended or deactivated by an
administrator. Only active accounts may authenticate or refresh a
session; every other status is treated as "not authorized" by the
session manager.
*/
package identity

import "time"

// Account statuses. The zero value is not a valid status.
const (
	StatusPending     = "pending"
	StatusActive      = "active"
	StatusSuspended   = "suspended"
	StatusRejected    = "rejected"
	StatusDeactivated = "deactivated"
)

// User is a platform account.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	AvatarURL    string     `json:"avatar,omitempty"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	UserType     string     `json:"user_type,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
}

// CanAuthenticate reports whether the account may hold or refresh a
// session. Suspended and deactivated accounts lose access immediately at
// their next token exchange.
func (user *User) CanAuthenticate() bool {
	return user.Status == StatusActive && user.DeletedAt == nil
}

// Profile is the public projection of a user embedded in auth responses.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar,omitempty"`
}

// PublicProfile converts the account to its response projection.
func (user *User) PublicProfile() Profile {
	return Profile{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		Avatar:   user.AvatarURL,
	}
}
