package dto

import (
	"time"

	"github.com/ClearMarkApp/backend/internal/models"
)

// CourseCreateRequest creates a course owned by the user with OwnerEmail.
type CourseCreateRequest struct {
	Code       string `json:"code" validate:"required,max=64"`
	Name       string `json:"name" validate:"required,max=255"`
	Colour     string `json:"colour" validate:"omitempty,max=32"`
	OwnerEmail string `json:"owner_email" validate:"required,email"`
}

// CourseResponse is the serialized course.
type CourseResponse struct {
	ID        uint      `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Colour    string    `json:"colour"`
	CreatedAt time.Time `json:"created_at"`
}

// CourseAssignmentSummary lists an assignment of a course with its submission count.
type CourseAssignmentSummary struct {
	ID              uint       `json:"id"`
	Title           string     `json:"title"`
	SubmissionType  string     `json:"submission_type"`
	DueDate         *time.Time `json:"due_date"`
	SubmissionCount int64      `json:"submission_count"`
}

// CourseDetailResponse is returned by GET /courses/:courseId.
type CourseDetailResponse struct {
	Course      CourseResponse            `json:"course"`
	Assignments []CourseAssignmentSummary `json:"assignments"`
	Members     []EnrollmentResponse      `json:"members"`
}

// NewCourseResponse converts a model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	return CourseResponse{
		ID:        model.ID,
		Code:      model.Code,
		Name:      model.Name,
		Colour:    model.Colour,
		CreatedAt: model.CreatedAt,
	}
}

// NewCourseResponseSlice converts a slice of models into DTOs.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}
	return responses
}
