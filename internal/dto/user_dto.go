package dto

import (
	"time"

	"github.com/ClearMarkApp/backend/internal/models"
)

// UserCreateRequest is the payload of POST /users.
type UserCreateRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=128"`
	LastName    string `json:"last_name" validate:"required,max=128"`
	Email       string `json:"email" validate:"required,email,max=255"`
	AccountType string `json:"account_type" validate:"required,oneof=STUDENT INSTRUCTOR"`
}

// UserClassesRequest looks up the courses a user owns.
type UserClassesRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          uint      `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	AccountType string    `json:"account_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewUserResponse converts a model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:          model.ID,
		FirstName:   model.FirstName,
		LastName:    model.LastName,
		Email:       model.Email,
		AccountType: model.AccountType,
		CreatedAt:   model.CreatedAt,
	}
}
