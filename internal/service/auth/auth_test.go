package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avkuzmin/accountd/internal/apperrors"
	"github.com/avkuzmin/accountd/internal/models"
	"github.com/avkuzmin/accountd/internal/repository/memory"
	"github.com/avkuzmin/accountd/internal/service/auth/tokenmanager"
)

func Test_Auth(t *testing.T) {
	t.Parallel()

	// Create new AuthService over a fresh in-memory storage
	newService := func(t *testing.T, tokenTTL time.Duration, renewalWindow time.Duration) (*Service, *memory.Storage) {
		t.Helper()

		storage := memory.NewStorage()
		tokenManager, err := tokenmanager.New(tokenmanager.Config{
			SecretKey:     "test-secret-key",
			TokenTTL:      tokenTTL,
			RenewalWindow: renewalWindow,
		})
		require.NoError(t, err, "token manager should be created without errors")

		s, err := NewService(Config{}, tokenManager, storage)
		require.NoError(t, err, "auth service couldn't be started")

		return s, storage
	}

	signUpAnn := func(t *testing.T, s *Service) models.AuthResult {
		t.Helper()

		result, err := s.SignUp(t.Context(), SignUpParams{
			Username:  "ann",
			Email:     "ann@x.com",
			FirstName: "Ann",
			LastName:  "Smith",
			Password:  "longpw1234",
		})
		require.NoError(t, err, "registering new user should be ok")
		return result
	}

	t.Run("new auth service defaults", func(t *testing.T) {
		storage := memory.NewStorage()
		tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "key"})
		require.NoError(t, err)

		s, err := NewService(Config{}, tokenManager, storage)
		require.NoError(t, err, "auth service should be created without errors")
		require.Equal(t, BcryptHasher{}, s.hasher, "default hasher should be set to BcryptHasher")

		_, err = NewService(Config{}, nil, storage)
		require.Error(t, err, "nil token manager should not be accepted")
	})

	t.Run("SignUp", func(t *testing.T) {
		t.Run("new user ok", func(t *testing.T) {
			s, storage := newService(t, 4*time.Hour, time.Hour)

			result := signUpAnn(t, s)

			require.NotEmpty(t, result.Token.Value, "session token should not be empty")
			require.Equal(t, "ann", result.User.Username)
			require.Empty(t, result.User.HashedPassword, "password hash should not leave the service")
			require.True(t, result.User.IsActive(), "new user should be active")

			stored, err := storage.Refresh().GetByUserID(t.Context(), result.User.ID)
			require.NoError(t, err, "refresh record should be persisted on sign up")
			require.Equal(t, result.Token.Value, stored.Token, "stored refresh value should be the issued token")
		})

		t.Run("fail if user exists", func(t *testing.T) {
			s, _ := newService(t, 4*time.Hour, time.Hour)
			signUpAnn(t, s)

			_, err := s.SignUp(t.Context(), SignUpParams{
				Username: "ann",
				Email:    "other@x.com",
				Password: "other-pw1234",
			})

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("SignIn", func(t *testing.T) {
		t.Run("existing user ok", func(t *testing.T) {
			s, _ := newService(t, 4*time.Hour, time.Hour)
			signUpAnn(t, s)

			result, err := s.SignIn(t.Context(), "ann@x.com", "longpw1234")

			require.NoError(t, err)
			require.NotEmpty(t, result.Token.Value, "session token should not be empty")
			require.Empty(t, result.User.HashedPassword, "password hash should not leave the service")
		})

		t.Run("rotates previous refresh record", func(t *testing.T) {
			s, storage := newService(t, 4*time.Hour, time.Hour)
			first := signUpAnn(t, s)

			second, err := s.SignIn(t.Context(), "ann@x.com", "longpw1234")
			require.NoError(t, err)

			stored, err := storage.Refresh().GetByUserID(t.Context(), second.User.ID)
			require.NoError(t, err)
			require.Equal(t, second.Token.Value, stored.Token, "only the latest token should be stored")
			require.NotEqual(t, first.Token.Value, stored.Token, "first token record should be rotated out")
		})

		tests := []struct {
			name        string
			email       string
			password    string
			expectedErr error
		}{
			{
				name:        "fail if wrong password",
				email:       "ann@x.com",
				password:    "wrong-password",
				expectedErr: apperrors.ErrInvalidCredentials,
			},
			{
				name:        "fail if user not exists",
				email:       "nobody@x.com",
				password:    "longpw1234",
				expectedErr: apperrors.ErrInvalidCredentials,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s, _ := newService(t, 4*time.Hour, time.Hour)
				signUpAnn(t, s)

				_, err := s.SignIn(t.Context(), tt.email, tt.password)

				require.Error(t, err)
				require.ErrorIs(t, err, tt.expectedErr)
			})
		}

		t.Run("fail if user inactive even with correct password", func(t *testing.T) {
			s, storage := newService(t, 4*time.Hour, time.Hour)
			result := signUpAnn(t, s)

			_, err := storage.User().SetDeactivatedAt(t.Context(), result.User.ID, time.Now())
			require.NoError(t, err)

			_, err = s.SignIn(t.Context(), "ann@x.com", "longpw1234")

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrUserInactive, "inactive user should fail with inactive error, not invalid credentials")
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("fail if token not near expiry", func(t *testing.T) {
			s, _ := newService(t, 4*time.Hour, time.Hour)
			result := signUpAnn(t, s)

			_, err := s.Refresh(t.Context(), result.Token.Value)

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrTokenNotNearExpiry)
		})

		t.Run("refresh near expiry ok", func(t *testing.T) {
			// Any token lives shorter than the renewal window, so it is
			// near expiry from the moment it is issued
			s, storage := newService(t, 30*time.Minute, time.Hour)
			result := signUpAnn(t, s)

			refreshed, err := s.Refresh(t.Context(), result.Token.Value)

			require.NoError(t, err)
			require.NotEqual(t, result.Token.Value, refreshed.Token.Value, "new token should be different")

			stored, err := storage.Refresh().GetByUserID(t.Context(), refreshed.User.ID)
			require.NoError(t, err)
			require.Equal(t, refreshed.Token.Value, stored.Token, "exactly the new token should be stored")
		})

		t.Run("fail if token already rotated out", func(t *testing.T) {
			s, _ := newService(t, 30*time.Minute, time.Hour)
			result := signUpAnn(t, s)

			_, err := s.Refresh(t.Context(), result.Token.Value)
			require.NoError(t, err)

			// The first token is still cryptographically valid, but its
			// stored record is gone
			_, err = s.Refresh(t.Context(), result.Token.Value)
			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound, "reuse of rotated out token should be rejected")
		})

		t.Run("fail if token expired", func(t *testing.T) {
			s, _ := newService(t, -time.Minute, time.Hour)
			result := signUpAnn(t, s)

			_, err := s.Refresh(t.Context(), result.Token.Value)

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrTokenExpired)
		})

		t.Run("fail if token garbage", func(t *testing.T) {
			s, _ := newService(t, 4*time.Hour, time.Hour)

			_, err := s.Refresh(t.Context(), "not-even-a-token")

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})

		t.Run("fail if user deactivated after issue", func(t *testing.T) {
			s, storage := newService(t, 30*time.Minute, time.Hour)
			result := signUpAnn(t, s)

			_, err := storage.User().SetDeactivatedAt(t.Context(), result.User.ID, time.Now())
			require.NoError(t, err)

			_, err = s.Refresh(t.Context(), result.Token.Value)

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrUserInactive)
		})

		t.Run("concurrent refreshes leave exactly one record", func(t *testing.T) {
			s, storage := newService(t, 30*time.Minute, time.Hour)
			result := signUpAnn(t, s)

			const workers = 8
			results := make([]models.AuthResult, workers)
			errs := make([]error, workers)

			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = s.Refresh(t.Context(), result.Token.Value)
				}(i)
			}
			wg.Wait()

			succeeded := 0
			issued := map[string]bool{}
			for i := range errs {
				if errs[i] == nil {
					succeeded++
					issued[results[i].Token.Value] = true
				}
			}
			require.GreaterOrEqual(t, succeeded, 1, "at least one refresh should succeed")

			stored, err := storage.Refresh().GetByUserID(t.Context(), result.User.ID)
			require.NoError(t, err, "exactly one record should survive the race")
			require.True(t, issued[stored.Token], "the surviving record should match one of the issued tokens")
		})
	})

	t.Run("ValidateUser", func(t *testing.T) {
		s, storage := newService(t, 4*time.Hour, time.Hour)
		result := signUpAnn(t, s)

		t.Run("active user ok", func(t *testing.T) {
			user, err := s.ValidateUser(t.Context(), result.User.ID)
			require.NoError(t, err)
			require.Equal(t, result.User.ID, user.ID)
		})

		t.Run("unknown user fails", func(t *testing.T) {
			_, err := s.ValidateUser(t.Context(), uuid.New())
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})

		t.Run("inactive user fails", func(t *testing.T) {
			_, err := storage.User().SetDeactivatedAt(t.Context(), result.User.ID, time.Now())
			require.NoError(t, err)

			_, err = s.ValidateUser(t.Context(), result.User.ID)
			require.ErrorIs(t, err, apperrors.ErrUserInactive)
		})
	})

	t.Run("Authenticate", func(t *testing.T) {
		s, storage := newService(t, 4*time.Hour, time.Hour)
		result := signUpAnn(t, s)

		t.Run("valid token ok", func(t *testing.T) {
			user, err := s.Authenticate(t.Context(), result.Token.Value)
			require.NoError(t, err)
			require.Equal(t, result.User.ID, user.ID)
			require.Empty(t, user.HashedPassword)
		})

		t.Run("garbage token fails", func(t *testing.T) {
			_, err := s.Authenticate(t.Context(), "garbage")
			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})

		t.Run("inactive user fails", func(t *testing.T) {
			_, err := storage.User().SetDeactivatedAt(t.Context(), result.User.ID, time.Now())
			require.NoError(t, err)

			_, err = s.Authenticate(t.Context(), result.Token.Value)
			require.ErrorIs(t, err, apperrors.ErrUserInactive)
		})
	})
}
