package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/dto"
	"github.com/ClearMarkApp/backend/internal/models"
	"github.com/ClearMarkApp/backend/internal/observability"
	"github.com/ClearMarkApp/backend/internal/repository"
)

const (
	pdfMimeType          = "application/pdf"
	defaultMaxUploadMB   = 20
	storageCleanupBudget = 30 * time.Second
)

var (
	// ErrFileRequired is returned when the upload carries no file.
	ErrFileRequired = errors.New("file is required")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the file is not a PDF.
	ErrUploadTypeNotAllowed = errors.New("only PDF files are accepted")
)

// SubmissionStorage stores submission files by key.
type SubmissionStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) (string, error)
}

// SubmissionService handles uploads and the per-student submission view.
type SubmissionService interface {
	Upload(ctx context.Context, userID, assignmentID uint, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	GetForStudent(ctx context.Context, assignmentID, studentID uint) (dto.StudentSubmissionResponse, error)
}

// SubmissionDependencies groups the collaborators of the submission service.
type SubmissionDependencies struct {
	Users       repository.UserRepository
	Assignments repository.AssignmentRepository
	Submissions repository.SubmissionRepository
	Grades      repository.GradeRepository
	Storage     SubmissionStorage
	Cache       AssignmentCache
	Activity    ActivityRecorder
}

type submissionService struct {
	deps    SubmissionDependencies
	maxSize int64
	now     func() time.Time
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// NewSubmissionService creates a submission service instance.
func NewSubmissionService(deps SubmissionDependencies, maxSizeMB int, logger zerolog.Logger) SubmissionService {
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxUploadMB
	}
	return &submissionService{
		deps:    deps,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		now:     time.Now,
		tracer:  otel.Tracer("github.com/ClearMarkApp/backend/internal/service/submission"),
		logger:  logger.With().Str("component", "submission_service").Logger(),
	}
}

func (s *submissionService) Upload(ctx context.Context, userID, assignmentID uint, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.upload", trace.WithAttributes(
		attribute.Int("assignment_id", int(assignmentID)),
		attribute.Int("user_id", int(userID)),
	))
	defer span.End()

	fail := func(err error, reason string) (dto.SubmissionResponse, error) {
		if reason != "" {
			observability.UploadsRejected().WithLabelValues(reason).Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return dto.SubmissionResponse{}, err
	}

	if file == nil {
		return fail(ErrFileRequired, "missing")
	}
	if file.Size > s.maxSize {
		return fail(ErrUploadTooLarge, "size")
	}

	if _, err := s.deps.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(ErrUserNotFound, "")
		}
		return fail(err, "")
	}
	if _, err := s.deps.Assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(ErrAssignmentNotFound, "")
		}
		return fail(err, "")
	}

	handle, err := file.Open()
	if err != nil {
		return fail(err, "")
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return fail(err, "")
	}
	if int64(buf.Len()) > s.maxSize {
		return fail(ErrUploadTooLarge, "size")
	}
	if detected := mimetype.Detect(buf.Bytes()); !detected.Is(pdfMimeType) {
		span.SetAttributes(attribute.String("upload.detected_mime", detected.String()))
		return fail(ErrUploadTypeNotAllowed, "type")
	}

	key := fmt.Sprintf("submissions/%d/%d/%d-%s.pdf", assignmentID, userID, s.now().Unix(), uuid.NewString())
	storedKey, err := s.deps.Storage.Upload(ctx, key, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrStorage, err), "")
	}

	submission := models.Submission{
		AssignmentID: assignmentID,
		StudentID:    userID,
		FileKey:      &storedKey,
		Status:       models.SubmissionStatusSubmitted,
	}
	removed, err := s.deps.Submissions.ReplaceForStudent(ctx, &submission)
	if err != nil {
		s.cleanupFiles(storedKey)
		return fail(fmt.Errorf("%w: %w", ErrPersistence, err), "")
	}

	var staleKeys []string
	for _, previous := range removed {
		if previous.HasFile() && *previous.FileKey != storedKey {
			staleKeys = append(staleKeys, *previous.FileKey)
		}
	}
	s.cleanupFiles(staleKeys...)

	if s.deps.Cache != nil {
		s.deps.Cache.InvalidateAssignment(ctx, assignmentID)
	}
	if s.deps.Activity != nil {
		if _, err := s.deps.Activity.Record(ctx, ActivityEntry{
			ActorID:    userID,
			ActorRole:  models.EnrollmentRoleStudent,
			Action:     activitySubmissionUploaded,
			EntityType: "submission",
			EntityID:   &submission.ID,
			Metadata: map[string]interface{}{
				"assignment_id": assignmentID,
				"replaced":      len(removed),
				"bytes":         buf.Len(),
			},
		}); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to record upload")
		}
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("assignment_id", assignmentID).
		Uint("user_id", userID).
		Int("replaced", len(removed)).
		Msg("submission uploaded")

	return dto.NewSubmissionResponse(submission, s.fileURL(storedKey)), nil
}

// cleanupFiles deletes stored files without failing the caller; the request context may already be gone.
func (s *submissionService) cleanupFiles(keys ...string) {
	if len(keys) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageCleanupBudget)
	defer cancel()

	for _, key := range keys {
		if err := s.deps.Storage.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("file_key", key).Msg("failed to delete stored file")
		}
	}
}

func (s *submissionService) GetForStudent(ctx context.Context, assignmentID, studentID uint) (dto.StudentSubmissionResponse, error) {
	user, err := s.deps.Users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentSubmissionResponse{}, ErrUserNotFound
		}
		return dto.StudentSubmissionResponse{}, err
	}

	if _, err := s.deps.Assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentSubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.StudentSubmissionResponse{}, err
	}

	response := dto.StudentSubmissionResponse{
		User:   dto.NewUserResponse(user),
		Grades: []dto.GradeResponse{},
	}

	submission, err := s.deps.Submissions.FindLatest(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response, nil
		}
		return dto.StudentSubmissionResponse{}, err
	}

	fileURL := ""
	if submission.HasFile() {
		fileURL = s.fileURL(*submission.FileKey)
	}
	view := dto.NewSubmissionResponse(submission, fileURL)
	response.Submission = &view

	grades, err := s.deps.Grades.ListBySubmission(ctx, submission.ID)
	if err != nil {
		return dto.StudentSubmissionResponse{}, err
	}
	for _, grade := range grades {
		response.Grades = append(response.Grades, dto.NewGradeResponse(grade))
		response.TotalScore += grade.Grade
	}

	return response, nil
}

func (s *submissionService) fileURL(key string) string {
	url, err := s.deps.Storage.URL(key)
	if err != nil {
		s.logger.Warn().Err(err).Str("file_key", key).Msg("failed to build file url")
		return ""
	}
	return url
}
