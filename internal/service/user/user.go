package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avkuzmin/accountd/internal/apperrors"
	"github.com/avkuzmin/accountd/internal/models"
	"github.com/avkuzmin/accountd/internal/repository"
	"github.com/avkuzmin/accountd/internal/service/auth"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type UpdateParams struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Password  *string
}

// User service
// Owns user records and their activation state. All returned users are
// sanitized: the password hash never leaves the service
type Service struct {
	hasher  auth.PasswordHasher
	storage repository.Storage
}

func NewService(hasher auth.PasswordHasher, storage repository.Storage) *Service {
	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}

	return &Service{
		hasher:  hasher,
		storage: storage,
	}
}

// Create user administratively, same hashing path as sign up
func (s *Service) Create(ctx context.Context, arg repository.CreateUserParams, password string) (models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("can't use this as password, error=%w", err)
	}
	arg.HashedPassword = hash

	user, err := s.storage.User().CreateUser(ctx, arg)
	if err != nil {
		return models.User{}, err
	}

	return user.Sanitized(), nil
}

func (s *Service) GetByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	return user.Sanitized(), nil
}

// GetByTerm looks the user up by id when the term parses as one,
// by username otherwise
func (s *Service) GetByTerm(ctx context.Context, term string) (models.User, error) {
	var user models.User
	var err error

	if id, parseErr := uuid.Parse(term); parseErr == nil {
		user, err = s.storage.User().GetUserByID(ctx, id)
	} else {
		user, err = s.storage.User().GetUserByUsername(ctx, term)
	}
	if err != nil {
		return models.User{}, err
	}

	return user.Sanitized(), nil
}

func (s *Service) List(ctx context.Context, limit int, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.storage.User().ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

// Update patches user fields. Deactivated users can not be updated.
// A new password goes through the hasher before it is persisted
func (s *Service) Update(ctx context.Context, userID uuid.UUID, arg UpdateParams) (models.User, error) {
	current, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if !current.IsActive() {
		return models.User{}, apperrors.ErrUserInactive
	}

	patch := repository.UpdateUserParams{
		Username:  arg.Username,
		Email:     arg.Email,
		FirstName: arg.FirstName,
		LastName:  arg.LastName,
	}
	if arg.Password != nil {
		hash, err := s.hasher.Hash(*arg.Password)
		if err != nil {
			return models.User{}, fmt.Errorf("can't use this as password, error=%w", err)
		}
		patch.HashedPassword = &hash
	}

	user, err := s.storage.User().UpdateUser(ctx, userID, patch)
	if err != nil {
		return models.User{}, err
	}

	return user.Sanitized(), nil
}

// Deactivate marks the target inactive. Users can not deactivate
// themselves and an inactive user can not be deactivated again
func (s *Service) Deactivate(ctx context.Context, actingUserID uuid.UUID, targetID uuid.UUID) (models.User, error) {
	if actingUserID == targetID {
		return models.User{}, apperrors.ErrSelfDeactivation
	}

	target, err := s.storage.User().GetUserByID(ctx, targetID)
	if err != nil {
		return models.User{}, err
	}
	if !target.IsActive() {
		return models.User{}, apperrors.ErrUserAlreadyInactive
	}

	user, err := s.storage.User().SetDeactivatedAt(ctx, targetID, time.Now().Truncate(time.Second))
	if err != nil {
		return models.User{}, err
	}

	return user.Sanitized(), nil
}

// Restore clears the deactivation mark of an inactive user
func (s *Service) Restore(ctx context.Context, targetID uuid.UUID) (models.User, error) {
	target, err := s.storage.User().GetUserByID(ctx, targetID)
	if err != nil {
		return models.User{}, err
	}
	if target.IsActive() {
		return models.User{}, apperrors.ErrUserNotInactive
	}

	user, err := s.storage.User().SetDeactivatedAt(ctx, targetID, time.Time{})
	if err != nil {
		return models.User{}, err
	}

	return user.Sanitized(), nil
}
