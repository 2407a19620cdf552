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

// ErrCourseNotFound is returned when a course cannot be located.
var ErrCourseNotFound = errors.New("course not found")

// CourseService manages courses.
type CourseService interface {
	Create(ctx context.Context, req dto.CourseCreateRequest) (dto.CourseResponse, error)
	Get(ctx context.Context, id uint) (dto.CourseDetailResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
}

type courseService struct {
	courses     repository.CourseRepository
	users       repository.UserRepository
	assignments repository.AssignmentRepository
	enrollments repository.EnrollmentRepository
	cache       AssignmentCache
	activity    ActivityRecorder
	validator   *validator.Validate
	logger      zerolog.Logger
}

// CourseDependencies groups the collaborators of the course service.
type CourseDependencies struct {
	Courses     repository.CourseRepository
	Users       repository.UserRepository
	Assignments repository.AssignmentRepository
	Enrollments repository.EnrollmentRepository
	Cache       AssignmentCache
	Activity    ActivityRecorder
}

// NewCourseService constructs the course service.
func NewCourseService(deps CourseDependencies, validator *validator.Validate, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:     deps.Courses,
		users:       deps.Users,
		assignments: deps.Assignments,
		enrollments: deps.Enrollments,
		cache:       deps.Cache,
		activity:    deps.Activity,
		validator:   validator,
		logger:      logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) Create(ctx context.Context, req dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CourseResponse{}, err
	}

	owner, err := s.users.GetByEmail(ctx, req.OwnerEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrUserNotFound
		}
		return dto.CourseResponse{}, err
	}

	course := models.Course{
		Code:   strings.TrimSpace(req.Code),
		Name:   strings.TrimSpace(req.Name),
		Colour: strings.TrimSpace(req.Colour),
	}
	if err := s.courses.CreateWithOwner(ctx, &course, owner.ID); err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", course.ID).Uint("owner_id", owner.ID).Msg("course created")
	return dto.NewCourseResponse(course), nil
}

func (s *courseService) Get(ctx context.Context, id uint) (dto.CourseDetailResponse, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseDetailResponse{}, ErrCourseNotFound
		}
		return dto.CourseDetailResponse{}, err
	}

	assignments, err := s.assignments.ListByCourse(ctx, id)
	if err != nil {
		return dto.CourseDetailResponse{}, err
	}

	counts, err := s.assignments.CountSubmissionsByCourse(ctx, id)
	if err != nil {
		return dto.CourseDetailResponse{}, err
	}

	members, err := s.enrollments.ListByCourse(ctx, id)
	if err != nil {
		return dto.CourseDetailResponse{}, err
	}

	summaries := make([]dto.CourseAssignmentSummary, 0, len(assignments))
	for _, assignment := range assignments {
		summaries = append(summaries, dto.CourseAssignmentSummary{
			ID:              assignment.ID,
			Title:           assignment.Title,
			SubmissionType:  assignment.SubmissionType,
			DueDate:         assignment.DueDate,
			SubmissionCount: counts[assignment.ID],
		})
	}

	return dto.CourseDetailResponse{
		Course:      dto.NewCourseResponse(course),
		Assignments: summaries,
		Members:     dto.NewEnrollmentResponseSlice(members),
	}, nil
}

func (s *courseService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	if s.cache != nil {
		s.cache.InvalidateCourse(ctx, id)
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return err
	}

	if s.activity != nil {
		if _, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     activityCourseDeleted,
			EntityType: "course",
			EntityID:   &id,
		}); err != nil {
			s.logger.Warn().Err(err).Uint("course_id", id).Msg("failed to record course deletion")
		}
	}

	s.logger.Info().Uint("course_id", id).Msg("course deleted")
	return nil
}
