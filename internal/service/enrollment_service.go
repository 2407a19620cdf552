package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/dto"
	"github.com/ClearMarkApp/backend/internal/models"
	"github.com/ClearMarkApp/backend/internal/repository"
)

var (
	// ErrEnrollmentNotFound is returned when an enrollment cannot be located.
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	// ErrAlreadyEnrolled is returned when the user already belongs to the course.
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
	// ErrLastCourseOwner is returned when a change would leave a course without an owner.
	ErrLastCourseOwner = errors.New("course must keep at least one owner")
)

// EnrollmentService manages course membership.
type EnrollmentService interface {
	Enroll(ctx context.Context, req dto.EnrollmentCreateRequest) (dto.EnrollmentResponse, error)
	UpdateRole(ctx context.Context, req dto.EnrollmentRoleRequest) (dto.EnrollmentResponse, error)
	Remove(ctx context.Context, id uint) error
}

type enrollmentService struct {
	enrollments repository.EnrollmentRepository
	users       repository.UserRepository
	courses     repository.CourseRepository
	cache       AssignmentCache
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewEnrollmentService constructs the enrollment service. cache may be nil.
func NewEnrollmentService(enrollments repository.EnrollmentRepository, users repository.UserRepository, courses repository.CourseRepository, cache AssignmentCache, validator *validator.Validate, logger zerolog.Logger) EnrollmentService {
	return &enrollmentService{
		enrollments: enrollments,
		users:       users,
		courses:     courses,
		cache:       cache,
		validator:   validator,
		logger:      logger.With().Str("component", "enrollment_service").Logger(),
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, req dto.EnrollmentCreateRequest) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, ErrUserNotFound
		}
		return dto.EnrollmentResponse{}, err
	}

	if _, err := s.courses.GetByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, ErrCourseNotFound
		}
		return dto.EnrollmentResponse{}, err
	}

	enrollment := models.CourseEnrollment{
		UserID:   user.ID,
		CourseID: req.CourseID,
		Role:     models.EnrollmentRoleStudent,
	}
	if err := s.enrollments.Create(ctx, &enrollment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.EnrollmentResponse{}, ErrAlreadyEnrolled
		}
		return dto.EnrollmentResponse{}, err
	}
	enrollment.User = user

	s.invalidate(ctx, enrollment.CourseID)
	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *enrollmentService) UpdateRole(ctx context.Context, req dto.EnrollmentRoleRequest) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	enrollment, err := s.enrollments.UpdateRole(ctx, req.EnrollmentID, req.Role)
	if err != nil {
		return dto.EnrollmentResponse{}, s.mapError(err)
	}

	s.invalidate(ctx, enrollment.CourseID)
	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *enrollmentService) Remove(ctx context.Context, id uint) error {
	enrollment, err := s.enrollments.GetByID(ctx, id)
	if err != nil {
		return s.mapError(err)
	}

	if err := s.enrollments.Delete(ctx, id); err != nil {
		return s.mapError(err)
	}

	s.invalidate(ctx, enrollment.CourseID)
	return nil
}

func (s *enrollmentService) mapError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrEnrollmentNotFound
	case errors.Is(err, repository.ErrLastOwner):
		return ErrLastCourseOwner
	default:
		return err
	}
}

func (s *enrollmentService) invalidate(ctx context.Context, courseID uint) {
	if s.cache != nil {
		s.cache.InvalidateCourse(ctx, courseID)
	}
}
