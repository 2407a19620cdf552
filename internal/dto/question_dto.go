package dto

import "github.com/ClearMarkApp/backend/internal/models"

// QuestionCreateRequest adds a question to an assignment.
type QuestionCreateRequest struct {
	AssignmentID uint    `json:"assignment_id" validate:"required"`
	Number       int     `json:"number" validate:"required,min=1"`
	Text         string  `json:"text" validate:"required"`
	MaxPoints    float64 `json:"max_points" validate:"gte=0"`
	SolutionKey  *string `json:"solution_key"`
}

// QuestionUpdateRequest replaces the editable fields of a question.
type QuestionUpdateRequest struct {
	ID          uint    `json:"id" validate:"required"`
	Number      int     `json:"number" validate:"required,min=1"`
	Text        string  `json:"text" validate:"required"`
	MaxPoints   float64 `json:"max_points" validate:"gte=0"`
	SolutionKey *string `json:"solution_key"`
}

// QuestionResponse is the serialized question.
type QuestionResponse struct {
	ID           uint    `json:"id"`
	AssignmentID uint    `json:"assignment_id"`
	Number       int     `json:"number"`
	Text         string  `json:"text"`
	MaxPoints    float64 `json:"max_points"`
	SolutionKey  *string `json:"solution_key"`
}

// NewQuestionResponse converts a model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	return QuestionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		Number:       model.Number,
		Text:         model.Text,
		MaxPoints:    model.MaxPoints,
		SolutionKey:  model.SolutionKey,
	}
}

// NewQuestionResponseSlice converts a slice of models into DTOs.
func NewQuestionResponseSlice(questions []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question))
	}
	return responses
}
