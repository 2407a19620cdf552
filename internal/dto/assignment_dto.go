package dto

import (
	"time"

	"github.com/ClearMarkApp/backend/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	CourseID          uint       `json:"course_id" validate:"required"`
	Title             string     `json:"title" validate:"required,max=255"`
	SubmissionType    string     `json:"submission_type" validate:"omitempty,max=32"`
	DueDate           *time.Time `json:"due_date"`
	GradingGuidelines string     `json:"grading_guidelines"`
}

// AssignmentGuidelinesRequest replaces the grading guidelines of an assignment.
type AssignmentGuidelinesRequest struct {
	AssignmentID      uint   `json:"assignment_id" validate:"required"`
	GradingGuidelines string `json:"grading_guidelines"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID                uint       `json:"id"`
	CourseID          uint       `json:"course_id"`
	Title             string     `json:"title"`
	SubmissionType    string     `json:"submission_type"`
	DueDate           *time.Time `json:"due_date"`
	GradingGuidelines string     `json:"grading_guidelines"`
	CreatedAt         time.Time  `json:"created_at"`
}

// AssignmentSubmissionSummary is the latest submission of one student.
type AssignmentSubmissionSummary struct {
	SubmissionID uint      `json:"submission_id"`
	StudentID    uint      `json:"student_id"`
	StudentName  string    `json:"student_name"`
	Status       string    `json:"status"`
	TotalScore   float64   `json:"total_score"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// AssignmentDetailResponse is returned by GET /assignments/:assignmentId.
type AssignmentDetailResponse struct {
	Assignment  AssignmentResponse            `json:"assignment"`
	Questions   []QuestionResponse            `json:"questions"`
	Users       []EnrollmentResponse          `json:"users"`
	Submissions []AssignmentSubmissionSummary `json:"submissions"`
	MaxScore    float64                       `json:"max_score"`
	CacheHit    bool                          `json:"cache_hit"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:                model.ID,
		CourseID:          model.CourseID,
		Title:             model.Title,
		SubmissionType:    model.SubmissionType,
		DueDate:           model.DueDate,
		GradingGuidelines: model.GradingGuidelines,
		CreatedAt:         model.CreatedAt,
	}
}
