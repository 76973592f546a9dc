package dto

type CreateSessionRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type UpdateSessionRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}
