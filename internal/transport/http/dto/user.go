package dto

import (
	"qr_photo/internal/domain/models"

	"github.com/google/uuid"
)

// CreateUserRequest is the body of POST /api/users. An empty
// allowed_sessions list grants access to every session.
type CreateUserRequest struct {
	Username        string      `json:"username" validate:"required,min=1,max=64"`
	Password        string      `json:"password" validate:"required,min=1,max=72"`
	IsSuperadmin    bool        `json:"is_superadmin"`
	AllowedSessions []uuid.UUID `json:"allowed_sessions" swaggertype:"array,string"`
}

func (r CreateUserRequest) ToDomain() models.UserCreate {
	return models.UserCreate{
		Username:        r.Username,
		Password:        r.Password,
		IsSuperadmin:    r.IsSuperadmin,
		AllowedSessions: r.AllowedSessions,
	}
}

// UpdateUserRequest is the body of PUT /api/users/:id. Omitted fields are
// left unchanged, as is a blank password.
type UpdateUserRequest struct {
	Username        *string      `json:"username,omitempty" validate:"omitempty,min=1,max=64"`
	Password        *string      `json:"password,omitempty" validate:"omitempty,max=72"`
	IsSuperadmin    *bool        `json:"is_superadmin,omitempty"`
	AllowedSessions *[]uuid.UUID `json:"allowed_sessions,omitempty" swaggertype:"array,string"`
}

func (r UpdateUserRequest) ToDomain() models.UserPatch {
	return models.UserPatch{
		Username:        r.Username,
		Password:        r.Password,
		IsSuperadmin:    r.IsSuperadmin,
		AllowedSessions: r.AllowedSessions,
	}
}
