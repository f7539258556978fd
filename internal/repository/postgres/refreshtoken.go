package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avkuzmin/accountd/internal/apperrors"
	"github.com/avkuzmin/accountd/internal/models"
)

type RefreshTokenRepo struct {
	db DBTX
}

const replaceToken = `-- name: ReplaceToken
INSERT INTO refresh_tokens (id, user_id, token, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE
SET id         = excluded.id,
    token      = excluded.token,
    created_at = excluded.created_at
`

// Replace swaps the user's single token slot in one statement.
// The unique index on user_id makes the rotation atomic: concurrent
// replaces serialize on the row and exactly one record survives
func (r *RefreshTokenRepo) Replace(ctx context.Context, token models.RefreshToken) error {
	_, err := r.db.Exec(ctx, replaceToken, token.ID, token.UserID, token.Token, token.CreatedAt)
	if err != nil {
		return dbError(err)
	}

	return nil
}

const getTokenByUserID = `-- name: GetTokenByUserID
SELECT id, user_id, token, created_at
FROM refresh_tokens
WHERE user_id = $1
`

func (r *RefreshTokenRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (models.RefreshToken, error) {
	rows, _ := r.db.Query(ctx, getTokenByUserID, userID)
	token, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.RefreshToken, error) {
		var t models.RefreshToken
		err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.CreatedAt)
		return t, err
	})

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrRefreshTokenNotFound
	default:
		return token, dbError(err)
	}
}

const deleteTokenByUserID = `-- name: DeleteTokenByUserID
DELETE FROM refresh_tokens
WHERE user_id = $1
`

func (r *RefreshTokenRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, deleteTokenByUserID, userID)
	if err != nil {
		return dbError(err)
	}

	return nil
}
