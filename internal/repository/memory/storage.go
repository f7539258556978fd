// Package memory keeps the repositories in process memory.
// It backs unit tests where spinning up postgres is not worth it
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avkuzmin/accountd/internal/apperrors"
	"github.com/avkuzmin/accountd/internal/models"
	"github.com/avkuzmin/accountd/internal/repository"
)

type Storage struct {
	mu     sync.Mutex
	users  map[uuid.UUID]models.User
	tokens map[uuid.UUID]models.RefreshToken // keyed by user id: one slot per user
}

func NewStorage() *Storage {
	return &Storage{
		users:  make(map[uuid.UUID]models.User),
		tokens: make(map[uuid.UUID]models.RefreshToken),
	}
}

func (s *Storage) User() repository.UserRepo {
	return &userRepo{s: s}
}

func (s *Storage) Refresh() repository.RefreshTokenRepo {
	return &refreshTokenRepo{s: s}
}

// InTx runs fn over the same storage. The single mutex already
// serializes every mutation, no extra transaction state is needed
func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) error {
	return fn(s)
}

type userRepo struct {
	s *Storage
}

func (r *userRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == arg.Username || u.Email == arg.Email {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	roles := arg.Roles
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}

	now := time.Now().Truncate(time.Second)
	user := models.User{
		ID:             uuid.New(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Username:       arg.Username,
		Email:          arg.Email,
		FirstName:      arg.FirstName,
		LastName:       arg.LastName,
		Roles:          roles,
		HashedPassword: arg.HashedPassword,
	}
	r.s.users[user.ID] = user

	return user, nil
}

func (r *userRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}

	return user, nil
}

func (r *userRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username })
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *userRepo) ListUsers(ctx context.Context, limit int, offset int) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	users := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })

	if offset >= len(users) {
		return []models.User{}, nil
	}
	users = users[offset:]
	if limit < len(users) {
		users = users[:limit]
	}

	return users, nil
}

func (r *userRepo) UpdateUser(ctx context.Context, userID uuid.UUID, arg repository.UpdateUserParams) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}

	setString := func(field *string, value *string) {
		if value != nil {
			*field = *value
		}
	}
	setString(&user.Username, arg.Username)
	setString(&user.Email, arg.Email)
	setString(&user.FirstName, arg.FirstName)
	setString(&user.LastName, arg.LastName)
	setString(&user.HashedPassword, arg.HashedPassword)
	user.UpdatedAt = time.Now().Truncate(time.Second)

	for id, u := range r.s.users {
		if id != userID && (u.Username == user.Username || u.Email == user.Email) {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	r.s.users[userID] = user
	return user, nil
}

func (r *userRepo) SetDeactivatedAt(ctx context.Context, userID uuid.UUID, deactivatedAt time.Time) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}

	user.DeactivatedAt = deactivatedAt
	user.UpdatedAt = time.Now().Truncate(time.Second)
	r.s.users[userID] = user

	return user, nil
}

func (r *userRepo) find(match func(models.User) bool) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if match(u) {
			return u, nil
		}
	}

	return models.User{}, apperrors.ErrUserNotFound
}

type refreshTokenRepo struct {
	s *Storage
}

// Replace swaps the user's token slot under the storage mutex, so two
// concurrent rotations can not leave two live records
func (r *refreshTokenRepo) Replace(ctx context.Context, token models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.tokens[token.UserID] = token
	return nil
}

func (r *refreshTokenRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	token, ok := r.s.tokens[userID]
	if !ok {
		return models.RefreshToken{}, apperrors.ErrRefreshTokenNotFound
	}

	return token, nil
}

func (r *refreshTokenRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.tokens, userID)
	return nil
}

