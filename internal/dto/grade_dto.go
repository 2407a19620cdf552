package dto

import "github.com/ClearMarkApp/backend/internal/models"

// GradeUpdateRequest is a manual override of one grade.
type GradeUpdateRequest struct {
	GradeID  uint     `json:"grade_id" validate:"required"`
	Grade    *float64 `json:"grade" validate:"required"`
	Feedback *string  `json:"feedback"`
}

// GradeResponse is a stored grade with its question context.
type GradeResponse struct {
	ID             uint    `json:"id"`
	SubmissionID   uint    `json:"submission_id"`
	QuestionID     uint    `json:"question_id"`
	QuestionNumber int     `json:"question_number"`
	MaxPoints      float64 `json:"max_points"`
	Grade          float64 `json:"grade"`
	Feedback       string  `json:"feedback"`
}

// NewGradeResponse converts a model into a DTO. Question must be preloaded.
func NewGradeResponse(model models.Grade) GradeResponse {
	return GradeResponse{
		ID:             model.ID,
		SubmissionID:   model.SubmissionID,
		QuestionID:     model.QuestionID,
		QuestionNumber: model.Question.Number,
		MaxPoints:      model.Question.MaxPoints,
		Grade:          model.Grade,
		Feedback:       model.Feedback,
	}
}

// AIGradeResponse is one validated per-question grade of an AI grading run.
type AIGradeResponse struct {
	QuestionID uint    `json:"question_id"`
	Grade      float64 `json:"grade"`
	Feedback   string  `json:"feedback"`
}

// AIGradingResponse is the data of a successful AI grading run.
type AIGradingResponse struct {
	SubmissionID    uint              `json:"submission_id"`
	TotalScore      float64           `json:"total_score"`
	OverallFeedback string            `json:"overall_feedback"`
	Grades          []AIGradeResponse `json:"grades"`
}
