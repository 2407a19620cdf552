package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/dto"
	"github.com/ClearMarkApp/backend/internal/models"
	"github.com/ClearMarkApp/backend/internal/observability"
	"github.com/ClearMarkApp/backend/internal/repository"
)

// ErrAssignmentNotFound is returned when an assignment cannot be located.
var ErrAssignmentNotFound = errors.New("assignment not found")

const defaultAssignmentCacheTTL = 2 * time.Minute

// AssignmentCache drops cached assignment views after writes.
type AssignmentCache interface {
	InvalidateAssignment(ctx context.Context, assignmentID uint)
	InvalidateCourse(ctx context.Context, courseID uint)
}

// AssignmentService describes assignment use-cases.
type AssignmentService interface {
	AssignmentCache
	Create(ctx context.Context, req dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentDetailResponse, error)
	UpdateGuidelines(ctx context.Context, req dto.AssignmentGuidelinesRequest) (dto.AssignmentResponse, error)
}

// AssignmentRepositories groups the stores the assignment view reads from.
type AssignmentRepositories struct {
	Assignments repository.AssignmentRepository
	Courses     repository.CourseRepository
	Questions   repository.QuestionRepository
	Enrollments repository.EnrollmentRepository
	Submissions repository.SubmissionRepository
}

type assignmentService struct {
	repos     AssignmentRepositories
	cache     *redis.Client
	ttl       time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssignmentService creates a new assignment service. cache may be nil.
func NewAssignmentService(repos AssignmentRepositories, cache *redis.Client, ttl time.Duration, validator *validator.Validate, logger zerolog.Logger) AssignmentService {
	if ttl <= 0 {
		ttl = defaultAssignmentCacheTTL
	}
	return &assignmentService{
		repos:     repos,
		cache:     cache,
		ttl:       ttl,
		validator: validator,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
	}
}

func assignmentCacheKey(id uint) string {
	return fmt.Sprintf("assignment:detail:v1:%d", id)
}

func (s *assignmentService) Create(ctx context.Context, req dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if _, err := s.repos.Courses.GetByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrCourseNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		CourseID:          req.CourseID,
		Title:             strings.TrimSpace(req.Title),
		SubmissionType:    strings.TrimSpace(req.SubmissionType),
		DueDate:           req.DueDate,
		GradingGuidelines: strings.TrimSpace(req.GradingGuidelines),
	}
	if err := s.repos.Assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("course_id", assignment.CourseID).Msg("assignment created")
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentDetailResponse, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, assignmentCacheKey(id)).Result(); err == nil && cached != "" {
			var response dto.AssignmentDetailResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				observability.AssignmentCache().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Uint("assignment_id", id).Msg("assignment cache read failed")
		}
		observability.AssignmentCache().WithLabelValues("miss").Inc()
	}

	assignment, err := s.repos.Assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentDetailResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentDetailResponse{}, err
	}

	questions, err := s.repos.Questions.ListByAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentDetailResponse{}, err
	}

	members, err := s.repos.Enrollments.ListByCourse(ctx, assignment.CourseID)
	if err != nil {
		return dto.AssignmentDetailResponse{}, err
	}

	submissions, err := s.repos.Submissions.ListLatestByAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentDetailResponse{}, err
	}

	response := dto.AssignmentDetailResponse{
		Assignment:  dto.NewAssignmentResponse(assignment),
		Questions:   dto.NewQuestionResponseSlice(questions),
		Users:       dto.NewEnrollmentResponseSlice(members),
		Submissions: make([]dto.AssignmentSubmissionSummary, 0, len(submissions)),
	}
	for _, question := range questions {
		response.MaxScore += question.MaxPoints
	}
	for _, submission := range submissions {
		response.Submissions = append(response.Submissions, dto.AssignmentSubmissionSummary{
			SubmissionID: submission.ID,
			StudentID:    submission.StudentID,
			StudentName:  submission.Student.FullName(),
			Status:       submission.Status,
			TotalScore:   sumGrades(submission.Grades),
			SubmittedAt:  submission.CreatedAt,
		})
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, assignmentCacheKey(id), payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Uint("assignment_id", id).Msg("failed to cache assignment")
			}
		}
	}

	return response, nil
}

func (s *assignmentService) UpdateGuidelines(ctx context.Context, req dto.AssignmentGuidelinesRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.repos.Assignments.UpdateGuidelines(ctx, req.AssignmentID, strings.TrimSpace(req.GradingGuidelines))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	s.InvalidateAssignment(ctx, assignment.ID)
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) InvalidateAssignment(ctx context.Context, assignmentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, assignmentCacheKey(assignmentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to invalidate assignment cache")
	}
}

func (s *assignmentService) InvalidateCourse(ctx context.Context, courseID uint) {
	if s.cache == nil {
		return
	}

	assignments, err := s.repos.Assignments.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to list assignments for cache invalidation")
		return
	}
	if len(assignments) == 0 {
		return
	}

	keys := make([]string, 0, len(assignments))
	for _, assignment := range assignments {
		keys = append(keys, assignmentCacheKey(assignment.ID))
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to invalidate course assignment cache")
	}
}

func sumGrades(grades []models.Grade) float64 {
	total := 0.0
	for _, grade := range grades {
		total += grade.Grade
	}
	return total
}
