package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avkuzmin/accountd/internal/models"
)

type CreateUserParams struct {
	Username       string
	Email          string
	FirstName      string
	LastName       string
	Roles          []string
	HashedPassword string
}

// UpdateUserParams carries the patch for a user record
// Nil fields are left untouched
type UpdateUserParams struct {
	Username       *string
	Email          *string
	FirstName      *string
	LastName       *string
	HashedPassword *string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If a user with the same username or email exists already
	// has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id, username or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// List users ordered by creation time
	ListUsers(ctx context.Context, limit int, offset int) ([]models.User, error)

	// Apply patch to user record
	// If user not found must return apperrors.ErrUserNotFound
	UpdateUser(ctx context.Context, userID uuid.UUID, arg UpdateUserParams) (models.User, error)

	// Set or clear (zero time) the deactivation mark
	SetDeactivatedAt(ctx context.Context, userID uuid.UUID, deactivatedAt time.Time) (models.User, error)
}

// RefreshToken repository interface
// The collection is keyed logically by user id: one live record per user
type RefreshTokenRepo interface {
	// Replace the user's refresh token with the given one atomically.
	// Whatever record the user had before must not survive the call,
	// even under concurrent Replace for the same user
	Replace(ctx context.Context, token models.RefreshToken) error

	// Get the user's current token
	// If absent must return apperrors.ErrRefreshTokenNotFound
	GetByUserID(ctx context.Context, userID uuid.UUID) (models.RefreshToken, error)

	// Delete the user's token if present
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

// Storage bundles the repositories over one backing store
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo

	// Run fn within a single storage transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
