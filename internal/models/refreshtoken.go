package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the single durable renewal credential of a user.
// At most one record exists per user at any time: issuing a new session
// replaces the previous record
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
}
