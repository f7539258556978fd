package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/avkuzmin/accountd/internal/handlers/render"
	"github.com/avkuzmin/accountd/internal/handlers/userctx"
	"github.com/avkuzmin/accountd/internal/models"
)

const authScheme = "Bearer"

type authService interface {
	// Verify bearer session token and return its user
	// Must fail for deactivated users
	Authenticate(ctx context.Context, token string) (models.User, error)
}

func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := as.Authenticate(r.Context(), token)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, authScheme) || token == "" {
		return "", false
	}

	return token, true
}
