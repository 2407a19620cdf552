package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/dto"
	"github.com/ClearMarkApp/backend/internal/repository"
)

var (
	// ErrGradeNotFound is returned when a grade cannot be located.
	ErrGradeNotFound = errors.New("grade not found")
	// ErrGradeOutOfRange is returned when a manual grade falls outside [0, max points].
	ErrGradeOutOfRange = errors.New("grade is outside the allowed range")
)

// GradeService applies manual grade overrides.
type GradeService interface {
	Update(ctx context.Context, actor ActivityActor, req dto.GradeUpdateRequest) (dto.GradeResponse, error)
}

type gradeService struct {
	grades    repository.GradeRepository
	cache     AssignmentCache
	activity  ActivityRecorder
	sanitizer feedbackSanitizer
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGradeService constructs the grade service. cache and activity may be nil.
func NewGradeService(grades repository.GradeRepository, cache AssignmentCache, activity ActivityRecorder, validator *validator.Validate, logger zerolog.Logger) GradeService {
	return &gradeService{
		grades:    grades,
		cache:     cache,
		activity:  activity,
		sanitizer: newFeedbackSanitizer(),
		validator: validator,
		logger:    logger.With().Str("component", "grade_service").Logger(),
	}
}

func (s *gradeService) Update(ctx context.Context, actor ActivityActor, req dto.GradeUpdateRequest) (dto.GradeResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.GradeResponse{}, err
	}

	current, err := s.grades.GetByID(ctx, req.GradeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrGradeNotFound
		}
		return dto.GradeResponse{}, err
	}

	value := *req.Grade
	if value < 0 || value > current.Question.MaxPoints {
		return dto.GradeResponse{}, fmt.Errorf("%w: %g is not within 0 and %g", ErrGradeOutOfRange, value, current.Question.MaxPoints)
	}

	updates := map[string]interface{}{"grade": value}
	if req.Feedback != nil {
		updates["feedback"] = s.sanitizer.Sanitize(*req.Feedback)
	}

	updated, err := s.grades.Update(ctx, req.GradeID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrGradeNotFound
		}
		return dto.GradeResponse{}, err
	}

	if s.cache != nil {
		s.cache.InvalidateAssignment(ctx, updated.Question.AssignmentID)
	}

	if s.activity != nil {
		if _, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     activityGradeOverridden,
			EntityType: "grade",
			EntityID:   &updated.ID,
			Metadata: map[string]interface{}{
				"submission_id": updated.SubmissionID,
				"question_id":   updated.QuestionID,
				"previous":      current.Grade,
				"grade":         updated.Grade,
			},
		}); err != nil {
			s.logger.Warn().Err(err).Uint("grade_id", updated.ID).Msg("failed to record grade override")
		}
	}

	return dto.NewGradeResponse(updated), nil
}
