package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avkuzmin/accountd/internal/apperrors"
	"github.com/avkuzmin/accountd/internal/models"
	"github.com/avkuzmin/accountd/internal/repository"
)

type UserRepo struct {
	db DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, username, email, first_name, last_name, roles, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, updated_at, username, email, first_name, last_name, roles, password_hash, deactivated_at
`

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	roles := arg.Roles
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}

	rows, _ := r.db.Query(ctx, createUser, uuid.New(), arg.Username, arg.Email, arg.FirstName, arg.LastName, roles, arg.HashedPassword)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, dbError(err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, updated_at, username, email, first_name, last_name, roles, password_hash, deactivated_at
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	rows, _ := r.db.Query(ctx, getUserByID, userID)
	return collectUser(rows)
}

const getUserByUsername = `-- name: GetUserByUsername
SELECT id, created_at, updated_at, username, email, first_name, last_name, roles, password_hash, deactivated_at
FROM users
WHERE username = $1
`

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	rows, _ := r.db.Query(ctx, getUserByUsername, username)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, updated_at, username, email, first_name, last_name, roles, password_hash, deactivated_at
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.db.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

const listUsers = `-- name: ListUsers
SELECT id, created_at, updated_at, username, email, first_name, last_name, roles, password_hash, deactivated_at
FROM users
ORDER BY created_at
LIMIT $1 OFFSET $2
`

func (r *UserRepo) ListUsers(ctx context.Context, limit int, offset int) ([]models.User, error) {
	rows, _ := r.db.Query(ctx, listUsers, limit, offset)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, dbError(err)
	}

	return users, nil
}

const updateUser = `-- name: UpdateUser
UPDATE users
SET username      = COALESCE($2, username),
    email         = COALESCE($3, email),
    first_name    = COALESCE($4, first_name),
    last_name     = COALESCE($5, last_name),
    password_hash = COALESCE($6, password_hash),
    updated_at    = now()
WHERE id = $1
RETURNING id, created_at, updated_at, username, email, first_name, last_name, roles, password_hash, deactivated_at
`

func (r *UserRepo) UpdateUser(ctx context.Context, userID uuid.UUID, arg repository.UpdateUserParams) (models.User, error) {
	rows, _ := r.db.Query(ctx, updateUser, userID, arg.Username, arg.Email, arg.FirstName, arg.LastName, arg.HashedPassword)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return user, apperrors.ErrUserNotFound
		}

		return user, dbError(err)
	}

	return user, nil
}

const setDeactivatedAt = `-- name: SetDeactivatedAt
UPDATE users
SET deactivated_at = $2,
    updated_at     = now()
WHERE id = $1
RETURNING id, created_at, updated_at, username, email, first_name, last_name, roles, password_hash, deactivated_at
`

func (r *UserRepo) SetDeactivatedAt(ctx context.Context, userID uuid.UUID, deactivatedAt time.Time) (models.User, error) {
	// Zero time means active and is stored as NULL
	var at *time.Time
	if !deactivatedAt.IsZero() {
		at = &deactivatedAt
	}

	rows, _ := r.db.Query(ctx, setDeactivatedAt, userID, at)
	return collectUser(rows)
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, dbError(err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	var deactivatedAt *time.Time

	err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Roles, &u.HashedPassword, &deactivatedAt)
	if deactivatedAt != nil {
		u.DeactivatedAt = *deactivatedAt
	}

	return u, err
}
