package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/avkuzmin/accountd/internal/apperrors"
	"github.com/avkuzmin/accountd/internal/models"
	"github.com/avkuzmin/accountd/internal/repository"
	"github.com/avkuzmin/accountd/internal/testutil"
)

func Test_UserRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	createAnn := func(t *testing.T, repo *UserRepo) models.User {
		t.Helper()

		user, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
			Username:       "ann",
			Email:          "ann@x.com",
			FirstName:      "Ann",
			LastName:       "Smith",
			HashedPassword: "hash",
		})
		require.NoError(t, err, "user should be created without errors")
		return user
	}

	t.Run("create user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &UserRepo{db: tx}

			user := createAnn(t, repo)

			require.NotEqual(t, uuid.Nil, user.ID, "id should be assigned")
			require.Equal(t, "ann", user.Username)
			require.Equal(t, "ann@x.com", user.Email)
			require.Equal(t, []string{"user"}, user.Roles, "default role should be set")
			require.True(t, user.IsActive(), "new user should be active")
			require.False(t, user.CreatedAt.IsZero())
		})
	})

	t.Run("create duplicate fails", func(t *testing.T) {
		tests := []struct {
			name     string
			username string
			email    string
		}{
			{name: "same username", username: "ann", email: "other@x.com"},
			{name: "same email", username: "other", email: "ann@x.com"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
					repo := &UserRepo{db: tx}
					createAnn(t, repo)

					_, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
						Username:       tt.username,
						Email:          tt.email,
						HashedPassword: "hash",
					})

					require.Error(t, err)
					require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
				})
			})
		}
	})

	t.Run("get user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &UserRepo{db: tx}
			user := createAnn(t, repo)

			byID, err := repo.GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			require.Equal(t, user.ID, byID.ID)

			byUsername, err := repo.GetUserByUsername(t.Context(), "ann")
			require.NoError(t, err)
			require.Equal(t, user.ID, byUsername.ID)

			byEmail, err := repo.GetUserByEmail(t.Context(), "ann@x.com")
			require.NoError(t, err)
			require.Equal(t, user.ID, byEmail.ID)

			_, err = repo.GetUserByID(t.Context(), uuid.New())
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("list users", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &UserRepo{db: tx}

			for _, name := range []string{"ann", "bob", "kim"} {
				_, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
					Username:       name,
					Email:          name + "@x.com",
					HashedPassword: "hash",
				})
				require.NoError(t, err)
			}

			users, err := repo.ListUsers(t.Context(), 2, 0)
			require.NoError(t, err)
			require.Len(t, users, 2)

			users, err = repo.ListUsers(t.Context(), 10, 2)
			require.NoError(t, err)
			require.Len(t, users, 1)
		})
	})

	t.Run("update user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &UserRepo{db: tx}
			user := createAnn(t, repo)

			firstName := "Anna"
			hash := "new-hash"
			updated, err := repo.UpdateUser(t.Context(), user.ID, repository.UpdateUserParams{
				FirstName:      &firstName,
				HashedPassword: &hash,
			})

			require.NoError(t, err)
			require.Equal(t, "Anna", updated.FirstName)
			require.Equal(t, "new-hash", updated.HashedPassword)
			require.Equal(t, "ann", updated.Username, "fields not in the patch should stay")

			_, err = repo.UpdateUser(t.Context(), uuid.New(), repository.UpdateUserParams{FirstName: &firstName})
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("deactivate and restore", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &UserRepo{db: tx}
			user := createAnn(t, repo)

			at := time.Now().Truncate(time.Second)
			deactivated, err := repo.SetDeactivatedAt(t.Context(), user.ID, at)
			require.NoError(t, err)
			require.False(t, deactivated.IsActive())
			require.WithinDuration(t, at, deactivated.DeactivatedAt, time.Second)

			restored, err := repo.SetDeactivatedAt(t.Context(), user.ID, time.Time{})
			require.NoError(t, err)
			require.True(t, restored.IsActive(), "zero time should clear the deactivation mark")
		})
	})
}
