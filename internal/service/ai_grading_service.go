package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/dto"
	"github.com/ClearMarkApp/backend/internal/middleware"
	"github.com/ClearMarkApp/backend/internal/models"
	"github.com/ClearMarkApp/backend/internal/observability"
	"github.com/ClearMarkApp/backend/internal/repository"
	"github.com/ClearMarkApp/backend/pkg/ai"
)

var (
	// ErrNoQuestions is returned when the assignment has nothing to grade.
	ErrNoQuestions = errors.New("assignment has no questions")
	// ErrSubmissionNotFound is returned when the student has not submitted.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionFileMissing is returned when the latest submission has no stored file.
	ErrSubmissionFileMissing = errors.New("submission has no file attached")
	// ErrGradingInProgress is returned when another run holds the submission's lock.
	ErrGradingInProgress = errors.New("submission is already being graded")
	// ErrStorage wraps file storage failures.
	ErrStorage = errors.New("file storage failure")
	// ErrPersistence wraps database failures while saving grades.
	ErrPersistence = errors.New("failed to save grades")
)

// FileDownloader fetches stored submission files.
type FileDownloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// AIGradingService grades a student's latest submission with the AI grader.
type AIGradingService interface {
	GradeLatest(ctx context.Context, assignmentID, userID uint) (dto.AIGradingResponse, error)
}

// AIGradingDependencies groups the collaborators of a grading run. Lock, Events,
// Activity and Cache are optional.
type AIGradingDependencies struct {
	Assignments repository.AssignmentRepository
	Questions   repository.QuestionRepository
	Submissions repository.SubmissionRepository
	Grades      repository.GradeRepository
	Storage     FileDownloader
	Grader      ai.Grader
	Lock        GradingLock
	Events      GradingEventPublisher
	Activity    ActivityRecorder
	Cache       AssignmentCache
}

type aiGradingService struct {
	deps      AIGradingDependencies
	sanitizer feedbackSanitizer
	now       func() time.Time
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewAIGradingService constructs the grading orchestrator.
func NewAIGradingService(deps AIGradingDependencies, logger zerolog.Logger) AIGradingService {
	return &aiGradingService{
		deps:      deps,
		sanitizer: newFeedbackSanitizer(),
		now:       time.Now,
		tracer:    otel.Tracer("github.com/ClearMarkApp/backend/internal/service/ai_grading"),
		logger:    logger.With().Str("component", "ai_grading_service").Logger(),
	}
}

func (s *aiGradingService) GradeLatest(ctx context.Context, assignmentID, userID uint) (dto.AIGradingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade_latest", trace.WithAttributes(
		attribute.Int("assignment_id", int(assignmentID)),
		attribute.Int("user_id", int(userID)),
	))
	defer span.End()

	logger := s.logger.With().
		Uint("assignment_id", assignmentID).
		Uint("user_id", userID).
		Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
		Logger()

	start := s.now()
	response, err := s.gradeLatest(ctx, logger, assignmentID, userID)
	observability.GradingLatency().Observe(time.Since(start).Seconds())
	observability.GradingRuns().WithLabelValues(gradingOutcome(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, gradingOutcome(err))
		logger.Warn().Err(err).Str("outcome", gradingOutcome(err)).Msg("grading run failed")
		return dto.AIGradingResponse{}, err
	}

	span.SetAttributes(attribute.Int("submission_id", int(response.SubmissionID)))
	return response, nil
}

func (s *aiGradingService) gradeLatest(ctx context.Context, logger zerolog.Logger, assignmentID, userID uint) (dto.AIGradingResponse, error) {
	assignment, err := s.deps.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AIGradingResponse{}, ErrAssignmentNotFound
		}
		return dto.AIGradingResponse{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	questions, err := s.deps.Questions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return dto.AIGradingResponse{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if len(questions) == 0 {
		return dto.AIGradingResponse{}, ErrNoQuestions
	}

	submission, err := s.deps.Submissions.FindLatest(ctx, assignmentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AIGradingResponse{}, ErrSubmissionNotFound
		}
		return dto.AIGradingResponse{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !submission.HasFile() {
		return dto.AIGradingResponse{}, ErrSubmissionFileMissing
	}

	if s.deps.Lock != nil {
		release, err := s.deps.Lock.Acquire(ctx, submission.ID)
		switch {
		case errors.Is(err, ErrLockHeld):
			return dto.AIGradingResponse{}, ErrGradingInProgress
		case err != nil:
			logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("grading lock unavailable, continuing without it")
		default:
			defer release(context.WithoutCancel(ctx))
		}
	}

	document, err := s.deps.Storage.Download(ctx, *submission.FileKey)
	if err != nil {
		return dto.AIGradingResponse{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	result, err := s.deps.Grader.Grade(ctx, ai.GradingRequest{
		Document:   document,
		MimeType:   mimetype.Detect(document).String(),
		Questions:  toAIQuestions(questions),
		Guidelines: assignment.GradingGuidelines,
	})
	if err != nil {
		return dto.AIGradingResponse{}, err
	}

	clamped := ClampGradingResult(result, questions)
	known := RetainKnownQuestions(clamped, questions)
	if dropped := len(clamped.Grades) - len(known.Grades); dropped > 0 {
		logger.Warn().
			Uint("submission_id", submission.ID).
			Int("dropped", dropped).
			Msg("ignoring grades for questions outside the assignment")
	}
	validated := s.sanitizer.SanitizeResult(known)

	grades := make([]models.Grade, 0, len(validated.Grades))
	for _, grade := range validated.Grades {
		grades = append(grades, models.Grade{
			QuestionID: grade.QuestionID,
			Grade:      grade.Grade,
			Feedback:   grade.Feedback,
		})
	}
	if err := s.deps.Grades.ReplaceForSubmission(ctx, submission.ID, grades); err != nil {
		return dto.AIGradingResponse{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	logger.Info().
		Uint("submission_id", submission.ID).
		Float64("total_score", validated.TotalScore).
		Int("grades", len(grades)).
		Msg("submission graded")

	s.afterCommit(context.WithoutCancel(ctx), logger, submission, validated)

	return toAIGradingResponse(submission.ID, validated), nil
}

// afterCommit runs the side effects of a committed grading run. Failures are logged only.
func (s *aiGradingService) afterCommit(ctx context.Context, logger zerolog.Logger, submission models.Submission, result ai.GradingResult) {
	if s.deps.Activity != nil {
		if _, err := s.deps.Activity.Record(ctx, ActivityEntry{
			Action:     activitySubmissionGraded,
			EntityType: "submission",
			EntityID:   &submission.ID,
			Metadata: map[string]interface{}{
				"assignment_id": submission.AssignmentID,
				"student_id":    submission.StudentID,
				"total_score":   result.TotalScore,
				"grades":        len(result.Grades),
			},
		}); err != nil {
			logger.Warn().Err(err).Msg("failed to record grading activity")
		}
	}

	if s.deps.Cache != nil {
		s.deps.Cache.InvalidateAssignment(ctx, submission.AssignmentID)
	}

	if s.deps.Events != nil {
		event := GradingCompletedEvent{
			SubmissionID: submission.ID,
			AssignmentID: submission.AssignmentID,
			StudentID:    submission.StudentID,
			TotalScore:   result.TotalScore,
			GradedAt:     s.now().UTC(),
		}
		if err := s.deps.Events.PublishGradingCompleted(ctx, event); err != nil {
			logger.Warn().Err(err).Msg("failed to publish grading event")
		}
	}
}

func toAIQuestions(questions []models.Question) []ai.Question {
	converted := make([]ai.Question, 0, len(questions))
	for _, question := range questions {
		converted = append(converted, ai.Question{
			ID:          question.ID,
			Number:      question.Number,
			Text:        question.Text,
			MaxPoints:   question.MaxPoints,
			SolutionKey: question.SolutionKey,
		})
	}
	return converted
}

func toAIGradingResponse(submissionID uint, result ai.GradingResult) dto.AIGradingResponse {
	grades := make([]dto.AIGradeResponse, 0, len(result.Grades))
	for _, grade := range result.Grades {
		grades = append(grades, dto.AIGradeResponse{
			QuestionID: grade.QuestionID,
			Grade:      grade.Grade,
			Feedback:   grade.Feedback,
		})
	}

	return dto.AIGradingResponse{
		SubmissionID:    submissionID,
		TotalScore:      result.TotalScore,
		OverallFeedback: result.OverallFeedback,
		Grades:          grades,
	}
}

func gradingOutcome(err error) string {
	switch {
	case err == nil:
		return "graded"
	case errors.Is(err, ErrAssignmentNotFound), errors.Is(err, ErrSubmissionNotFound):
		return "not_found"
	case errors.Is(err, ErrNoQuestions), errors.Is(err, ErrSubmissionFileMissing):
		return "invalid_state"
	case errors.Is(err, ErrGradingInProgress):
		return "in_progress"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	case errors.Is(err, ai.ErrAITimeout):
		return "ai_timeout"
	case errors.Is(err, ai.ErrAIResponse):
		return "ai_response_error"
	case errors.Is(err, ai.ErrAIService):
		return "ai_service_error"
	case errors.Is(err, ErrPersistence):
		return "persistence_error"
	default:
		return "error"
	}
}
