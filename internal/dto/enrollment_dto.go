package dto

import "github.com/ClearMarkApp/backend/internal/models"

// EnrollmentCreateRequest enrolls the user with Email as a student.
type EnrollmentCreateRequest struct {
	CourseID uint   `json:"course_id" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

// EnrollmentRoleRequest changes the role of an enrollment.
type EnrollmentRoleRequest struct {
	EnrollmentID uint   `json:"enrollment_id" validate:"required"`
	Role         string `json:"role" validate:"required,oneof=OWNER INSTRUCTOR STUDENT"`
}

// EnrollmentResponse is a course member.
type EnrollmentResponse struct {
	ID       uint         `json:"id"`
	CourseID uint         `json:"course_id"`
	Role     string       `json:"role"`
	User     UserResponse `json:"user"`
}

// NewEnrollmentResponse converts a model into a DTO.
func NewEnrollmentResponse(model models.CourseEnrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:       model.ID,
		CourseID: model.CourseID,
		Role:     model.Role,
		User:     NewUserResponse(model.User),
	}
}

// NewEnrollmentResponseSlice converts a slice of models into DTOs.
func NewEnrollmentResponseSlice(enrollments []models.CourseEnrollment) []EnrollmentResponse {
	responses := make([]EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, NewEnrollmentResponse(enrollment))
	}
	return responses
}
