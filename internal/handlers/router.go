package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/avkuzmin/accountd/internal/handlers/middleware"
	"github.com/avkuzmin/accountd/internal/logger"
	"github.com/avkuzmin/accountd/internal/models"
	"github.com/avkuzmin/accountd/internal/service/auth"
	"github.com/avkuzmin/accountd/internal/service/user"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	userService userService,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	api := http.NewServeMux()

	api.Handle("POST /auth/signup", handleSignUp(authService, logger))
	api.Handle("POST /auth/signin", handleSignIn(authService, logger))
	api.Handle("POST /auth/refresh", handleRefresh(authService, logger))

	api.Handle("GET /users/me", withAuth(handleUserMe()))
	api.Handle("GET /users", withAuth(handleListUsers(userService, logger)))
	api.Handle("GET /users/{term}", withAuth(handleGetUser(userService, logger)))
	api.Handle("PATCH /users/{id}", withAuth(handleUpdateUser(userService, logger)))
	api.Handle("DELETE /users/{id}", withAuth(handleDeactivateUser(userService, logger)))
	api.Handle("POST /users/{id}/restore", withAuth(handleRestoreUser(userService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user, has to return apperrors.ErrUserAlreadyExists if
	// the username or email is taken
	SignUp(ctx context.Context, arg auth.SignUpParams) (models.AuthResult, error)

	// Login with email and password
	// Has to return apperrors.ErrInvalidCredentials on bad credentials
	// and apperrors.ErrUserInactive for deactivated users
	SignIn(ctx context.Context, email string, password string) (models.AuthResult, error)

	// Exchange a near-expiry session token for a fresh one
	Refresh(ctx context.Context, token string) (models.AuthResult, error)

	// Verify bearer session token and return its user
	Authenticate(ctx context.Context, token string) (models.User, error)
}

type userService interface {
	GetByTerm(ctx context.Context, term string) (models.User, error)
	List(ctx context.Context, limit int, offset int) ([]models.User, error)
	Update(ctx context.Context, userID uuid.UUID, arg user.UpdateParams) (models.User, error)
	Deactivate(ctx context.Context, actingUserID uuid.UUID, targetID uuid.UUID) (models.User, error)
	Restore(ctx context.Context, targetID uuid.UUID) (models.User, error)
}
