package handlers

import (
	"errors"
	"net/http"

	"github.com/avkuzmin/accountd/internal/apperrors"
	"github.com/avkuzmin/accountd/internal/handlers/render"
	"github.com/avkuzmin/accountd/internal/logger"
	"github.com/avkuzmin/accountd/internal/service/auth"
)

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func handleSignUp(s authService, l logger.Logger) http.Handler {
	type request struct {
		Username  string `json:"username" validate:"required,min=2,max=50"`
		Email     string `json:"email" validate:"required,email,max=50"`
		FirstName string `json:"name" validate:"required,min=2,max=20"`
		LastName  string `json:"lastName" validate:"required,min=2,max=20"`
		Password  string `json:"password" validate:"required,min=8,max=200"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := s.SignUp(r.Context(), auth.SignUpParams{
			Username:  data.Username,
			Email:     data.Email,
			FirstName: data.FirstName,
			LastName:  data.LastName,
			Password:  data.Password,
		})
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.ServiceError(w, "User already exists", http.StatusConflict)
			case errors.Is(err, apperrors.ErrStorageUnavailable):
				render.ServiceError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
			default:
				l.Error("sign up failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, authResponse{Token: result.Token.Value, User: toUserResponse(result.User)})
	})
}

func handleSignIn(s authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := s.SignIn(r.Context(), data.Email, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrUserInactive):
				render.ServiceError(w, "User is inactive, please contact support", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrStorageUnavailable):
				render.ServiceError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
			default:
				l.Error("sign in failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, authResponse{Token: result.Token.Value, User: toUserResponse(result.User)})
	})
}

func handleRefresh(s authService, l logger.Logger) http.Handler {
	type request struct {
		Token string `json:"token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := s.Refresh(r.Context(), data.Token)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrTokenExpired):
				render.ServiceError(w, "Token is expired", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrTokenInvalid):
				render.ServiceError(w, "Invalid token", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrUserInactive):
				render.ServiceError(w, "User is inactive, please contact support", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrRefreshTokenNotFound), errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrTokenNotNearExpiry):
				render.ServiceError(w, "Token is not about to expire", http.StatusBadRequest)
			case errors.Is(err, apperrors.ErrStorageUnavailable):
				render.ServiceError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
			default:
				l.Error("refresh failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, authResponse{Token: result.Token.Value, User: toUserResponse(result.User)})
	})
}
