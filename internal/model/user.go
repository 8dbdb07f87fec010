package model

import (
	"errors"
	"time"
)

// ErrEmailExists is returned when registering an address that is already
// taken.
var ErrEmailExists = errors.New("email already exists")

// Roles carried in the JWT "role" claim.  Guests book and cancel their
// own stays; staff drive the rest of the booking lifecycle.
const (
	RoleGuest = "GUEST"
	RoleStaff = "STAFF"
)

// User represents an application user record as stored in the
// `users` table.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – GUEST or STAFF.
//	IsActive     – whether the account may sign in.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
