package models

import (
	"time"

	"github.com/google/uuid"
)

// Default role assigned to every new user
const RoleUser = "user"

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Username       string
	Email          string
	FirstName      string
	LastName       string
	Roles          []string
	HashedPassword string
	DeactivatedAt  time.Time // zero value means the user is active
}

// Account is active unless it was deactivated
func (u User) IsActive() bool {
	return u.DeactivatedAt.IsZero()
}

// Sanitized returns the user projection safe to hand outside the
// service layer: same record without the password hash
func (u User) Sanitized() User {
	u.HashedPassword = ""
	return u
}
