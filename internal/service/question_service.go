package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/dto"
	"github.com/ClearMarkApp/backend/internal/models"
	"github.com/ClearMarkApp/backend/internal/repository"
)

// ErrQuestionNotFound is returned when a question cannot be located.
var ErrQuestionNotFound = errors.New("question not found")

// QuestionService manages assignment questions.
type QuestionService interface {
	Create(ctx context.Context, req dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	Update(ctx context.Context, req dto.QuestionUpdateRequest) (dto.QuestionResponse, error)
	Delete(ctx context.Context, id uint) error
}

type questionService struct {
	questions   repository.QuestionRepository
	assignments repository.AssignmentRepository
	cache       AssignmentCache
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewQuestionService constructs the question service. cache may be nil.
func NewQuestionService(questions repository.QuestionRepository, assignments repository.AssignmentRepository, cache AssignmentCache, validator *validator.Validate, logger zerolog.Logger) QuestionService {
	return &questionService{
		questions:   questions,
		assignments: assignments,
		cache:       cache,
		validator:   validator,
		logger:      logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) Create(ctx context.Context, req dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuestionResponse{}, err
	}

	if _, err := s.assignments.GetByID(ctx, req.AssignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrAssignmentNotFound
		}
		return dto.QuestionResponse{}, err
	}

	question := models.Question{
		AssignmentID: req.AssignmentID,
		Number:       req.Number,
		Text:         strings.TrimSpace(req.Text),
		MaxPoints:    req.MaxPoints,
		SolutionKey:  trimOptional(req.SolutionKey),
	}
	if err := s.questions.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.invalidate(ctx, question.AssignmentID)
	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Update(ctx context.Context, req dto.QuestionUpdateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuestionResponse{}, err
	}

	question := models.Question{
		ID:          req.ID,
		Number:      req.Number,
		Text:        strings.TrimSpace(req.Text),
		MaxPoints:   req.MaxPoints,
		SolutionKey: trimOptional(req.SolutionKey),
	}
	if err := s.questions.Update(ctx, &question); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	s.invalidate(ctx, question.AssignmentID)
	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Delete(ctx context.Context, id uint) error {
	question, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	if err := s.questions.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	s.invalidate(ctx, question.AssignmentID)
	return nil
}

func (s *questionService) invalidate(ctx context.Context, assignmentID uint) {
	if s.cache != nil {
		s.cache.InvalidateAssignment(ctx, assignmentID)
	}
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
