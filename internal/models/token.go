package models

import (
	"time"
)

// Signed session token as handed to the client
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// AuthResult is returned by sign up, sign in and refresh
type AuthResult struct {
	Token IssuedToken
	User  User
}
