package dto

import (
	"time"

	"github.com/ClearMarkApp/backend/internal/models"
)

// SubmissionResponse is the serialized submission.
type SubmissionResponse struct {
	ID           uint      `json:"id"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    uint      `json:"student_id"`
	Status       string    `json:"status"`
	FileKey      *string   `json:"file_key"`
	FileURL      string    `json:"file_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// StudentSubmissionResponse is returned by GET /assignments/:assignmentId/students/:studentId/submission.
type StudentSubmissionResponse struct {
	User       UserResponse        `json:"user"`
	Submission *SubmissionResponse `json:"submission"`
	Grades     []GradeResponse     `json:"grades"`
	TotalScore float64             `json:"total_score"`
}

// NewSubmissionResponse converts a model into a DTO.
func NewSubmissionResponse(model models.Submission, fileURL string) SubmissionResponse {
	return SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		Status:       model.Status,
		FileKey:      model.FileKey,
		FileURL:      fileURL,
		CreatedAt:    model.CreatedAt,
	}
}
