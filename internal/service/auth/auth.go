package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avkuzmin/accountd/internal/apperrors"
	"github.com/avkuzmin/accountd/internal/models"
	"github.com/avkuzmin/accountd/internal/repository"
	"github.com/avkuzmin/accountd/internal/service/auth/tokenmanager"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Hasher to use during user registration or login
	// BcryptHasher is used if not set
	Hasher PasswordHasher
}

type SignUpParams struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Auth service
// Owns the session lifecycle: credential verification, token issue and
// the rotation of the single refresh record every user has
type Service struct {
	// Manager to sign and verify session tokens
	tokens *tokenmanager.TokenManager

	// hasher to hash or compare user passwords
	hasher PasswordHasher

	// Storage to access long term data
	storage repository.Storage
}

func NewService(cfg Config, tokens *tokenmanager.TokenManager, storage repository.Storage) (*Service, error) {
	// Set default bcrypt hasher if not provided
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	if tokens == nil || storage == nil {
		return nil, errors.New("token manager and storage must not be nil")
	}

	return &Service{
		tokens:  tokens,
		hasher:  hasher,
		storage: storage,
	}, nil
}

func (s *Service) SignUp(ctx context.Context, arg SignUpParams) (models.AuthResult, error) {
	hash, err := s.hasher.Hash(arg.Password)
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err := s.storage.User().CreateUser(ctx, repository.CreateUserParams{
		Username:       arg.Username,
		Email:          arg.Email,
		FirstName:      arg.FirstName,
		LastName:       arg.LastName,
		HashedPassword: hash,
	})
	if err != nil {
		return models.AuthResult{}, err
	}

	token, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return models.AuthResult{}, err
	}

	return models.AuthResult{Token: token, User: user.Sanitized()}, nil
}

func (s *Service) SignIn(ctx context.Context, email string, password string) (models.AuthResult, error) {
	user, err := s.storage.User().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return models.AuthResult{}, apperrors.ErrInvalidCredentials
		}
		return models.AuthResult{}, err
	}

	// Inactive accounts never authenticate, correct password or not
	if !user.IsActive() {
		return models.AuthResult{}, apperrors.ErrUserInactive
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.AuthResult{}, apperrors.ErrInvalidCredentials
	}

	token, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return models.AuthResult{}, err
	}

	return models.AuthResult{Token: token, User: user.Sanitized()}, nil
}

// Refresh exchanges a near-expiry session token for a fresh one.
// The presented token must match the user's stored refresh record
// exactly: a token rotated out earlier is rejected even though its
// signature is still valid
func (s *Service) Refresh(ctx context.Context, presented string) (models.AuthResult, error) {
	claims, err := s.tokens.Parse(presented)
	if err != nil {
		return models.AuthResult{}, err
	}

	user, err := s.ValidateUser(ctx, claims.UserID)
	if err != nil {
		return models.AuthResult{}, err
	}

	stored, err := s.storage.Refresh().GetByUserID(ctx, user.ID)
	if err != nil {
		return models.AuthResult{}, err
	}
	if stored.Token != presented {
		return models.AuthResult{}, apperrors.ErrRefreshTokenNotFound
	}

	if !s.tokens.IsNearExpiry(claims.ExpiresAt.Time, time.Now()) {
		return models.AuthResult{}, apperrors.ErrTokenNotNearExpiry
	}

	token, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return models.AuthResult{}, err
	}

	return models.AuthResult{Token: token, User: user.Sanitized()}, nil
}

// ValidateUser returns the user if it exists and is active
func (s *Service) ValidateUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	if !user.IsActive() {
		return models.User{}, apperrors.ErrUserInactive
	}

	return user, nil
}

// Authenticate verifies a bearer session token and returns its user
func (s *Service) Authenticate(ctx context.Context, tokenString string) (models.User, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.ValidateUser(ctx, claims.UserID)
	if err != nil {
		return models.User{}, err
	}

	return user.Sanitized(), nil
}

// issueSession mints a session token and rotates the user's refresh
// record to it. The minted token string doubles as the stored refresh
// value, so one persisted artifact covers both roles
func (s *Service) issueSession(ctx context.Context, userID uuid.UUID) (models.IssuedToken, error) {
	token, err := s.tokens.Sign(userID)
	if err != nil {
		return models.IssuedToken{}, err
	}

	err = s.storage.Refresh().Replace(ctx, models.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token.Value,
		CreatedAt: time.Now().Truncate(time.Second),
	})
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return token, nil
}
