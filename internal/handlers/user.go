package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/avkuzmin/accountd/internal/apperrors"
	"github.com/avkuzmin/accountd/internal/handlers/render"
	"github.com/avkuzmin/accountd/internal/handlers/userctx"
	"github.com/avkuzmin/accountd/internal/logger"
	"github.com/avkuzmin/accountd/internal/service/user"
)

func handleUserMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())
		render.JSON(w, toUserResponse(u))
	})
}

func handleGetUser(s userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.GetByTerm(r.Context(), r.PathValue("term"))
		if err != nil {
			renderUserError(w, l, err)
			return
		}

		render.JSON(w, toUserResponse(u))
	})
}

func handleListUsers(s userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		users, err := s.List(r.Context(), limit, offset)
		if err != nil {
			renderUserError(w, l, err)
			return
		}

		responses := make([]userResponse, 0, len(users))
		for _, u := range users {
			responses = append(responses, toUserResponse(u))
		}
		render.JSON(w, responses)
	})
}

func handleUpdateUser(s userService, l logger.Logger) http.Handler {
	type request struct {
		Username  *string `json:"username" validate:"omitempty,min=2,max=50"`
		Email     *string `json:"email" validate:"omitempty,email,max=50"`
		FirstName *string `json:"name" validate:"omitempty,min=2,max=20"`
		LastName  *string `json:"lastName" validate:"omitempty,min=2,max=20"`
		Password  *string `json:"password" validate:"omitempty,min=8,max=200"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, err := s.Update(r.Context(), userID, user.UpdateParams{
			Username:  data.Username,
			Email:     data.Email,
			FirstName: data.FirstName,
			LastName:  data.LastName,
			Password:  data.Password,
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrUserInactive) {
				render.ServiceError(w, "User is inactive, you cannot update it", http.StatusBadRequest)
				return
			}
			renderUserError(w, l, err)
			return
		}

		render.JSON(w, toUserResponse(u))
	})
}

func handleDeactivateUser(s userService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		targetID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
			return
		}

		acting, _ := userctx.FromContext(r.Context())

		u, err := s.Deactivate(r.Context(), acting.ID, targetID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrSelfDeactivation):
				render.ServiceError(w, "You cannot deactivate yourself", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrUserAlreadyInactive):
				render.ServiceError(w, "User is already inactive", http.StatusBadRequest)
			default:
				renderUserError(w, l, err)
			}
			return
		}

		render.JSON(w, response{Message: "User " + u.Username + " deactivated successfully"})
	})
}

func handleRestoreUser(s userService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		targetID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
			return
		}

		u, err := s.Restore(r.Context(), targetID)
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotInactive) {
				render.ServiceError(w, "User is not inactive", http.StatusBadRequest)
				return
			}
			renderUserError(w, l, err)
			return
		}

		render.JSON(w, response{Message: "User " + u.Username + " restored successfully"})
	})
}

// Shared mapping for lookup and storage failures
func renderUserError(w http.ResponseWriter, l logger.Logger, err error) {
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		render.ServiceError(w, "User not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		render.ServiceError(w, "User already exists", http.StatusConflict)
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		render.ServiceError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
	default:
		l.Error("user request failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
