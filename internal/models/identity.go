package models

import (
	"time"
)

// Identity roles
const (
	RoleSuperUser = "super_user"
	RoleAdmin     = "admin"
	RoleStaff     = "staff"
)

// Identity is the authenticated user record produced by the credential
// gate. Immutable during a login attempt; superseded on each successful
// login.
type Identity struct {
	ID           string
	Email        string
	Name         string
	Role         string // "super_user", "admin", "staff"
	MFAEnabled   bool
	PasswordHash string // empty for directory-external identities
	Status       string // "active", "suspended", "disabled"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
