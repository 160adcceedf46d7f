// Package models defines server-side records persisted in the database and
// the values handed across the service boundary.
package models

import "time"

// User is a row of the users table. PasswordHash never leaves the
// services package; callers outside it get an Identity.
type User struct {
	ID           int64
	UserName     string
	PasswordHash string
	Email        *string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Identity is an authenticated principal, free of credential material.
type Identity struct {
	ID       int64   `json:"id"`
	UserName string  `json:"username"`
	Email    *string `json:"email,omitempty"`
}

// Identity strips the credential fields from u.
func (u *User) Identity() *Identity {
	return &Identity{ID: u.ID, UserName: u.UserName, Email: u.Email}
}
