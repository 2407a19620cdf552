package ai

import (
	"context"
	"errors"
)

var (
	// ErrAIService indicates the upstream model call itself failed (network, quota, rejected request).
	ErrAIService = errors.New("ai service request failed")
	// ErrAIResponse indicates the model answered with something that is not a valid grading result.
	ErrAIResponse = errors.New("ai response is not a valid grading result")
	// ErrAITimeout indicates the model did not answer before the configured deadline.
	ErrAITimeout = errors.New("ai service timed out")
)

// Question is the read-only view of an assignment question used to build prompts and schemas.
type Question struct {
	ID          uint
	Number      int
	Text        string
	MaxPoints   float64
	SolutionKey *string
}

// GradingRequest carries everything needed for one grading call.
type GradingRequest struct {
	Document   []byte
	MimeType   string
	Questions  []Question
	Guidelines string
}

// QuestionGrade is the model's verdict for one question.
type QuestionGrade struct {
	QuestionID uint    `json:"question_id"`
	Grade      float64 `json:"grade"`
	Feedback   string  `json:"feedback"`
}

// GradingResult is the structured output of a grading call.
type GradingResult struct {
	Grades          []QuestionGrade `json:"grades"`
	TotalScore      float64         `json:"total_score"`
	OverallFeedback string          `json:"overall_feedback"`
}

// Grader grades a submitted document against a question set.
type Grader interface {
	Grade(ctx context.Context, req GradingRequest) (GradingResult, error)
}
