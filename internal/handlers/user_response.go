package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/avkuzmin/accountd/internal/models"
)

// User projection rendered to clients, the password hash never included
type userResponse struct {
	ID            uuid.UUID  `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FirstName     string     `json:"name"`
	LastName      string     `json:"lastName"`
	Roles         []string   `json:"roles"`
	CreatedAt     time.Time  `json:"createdAt"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
}

func toUserResponse(u models.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
	}
	if !u.IsActive() {
		at := u.DeactivatedAt
		resp.DeactivatedAt = &at
	}

	return resp
}
