package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/models"
	"github.com/ClearMarkApp/backend/internal/repository"
)

const gradeSheetName = "Grades"

// GradeExport is a rendered XLSX workbook.
type GradeExport struct {
	Filename string
	Content  []byte
}

// ExportService renders grade books.
type ExportService interface {
	ExportGrades(ctx context.Context, assignmentID uint) (GradeExport, error)
}

type exportService struct {
	assignments repository.AssignmentRepository
	questions   repository.QuestionRepository
	submissions repository.SubmissionRepository
	logger      zerolog.Logger
}

// NewExportService constructs the export service.
func NewExportService(assignments repository.AssignmentRepository, questions repository.QuestionRepository, submissions repository.SubmissionRepository, logger zerolog.Logger) ExportService {
	return &exportService{
		assignments: assignments,
		questions:   questions,
		submissions: submissions,
		logger:      logger.With().Str("component", "export_service").Logger(),
	}
}

// ExportGrades writes one row per student's latest submission and one column per question.
func (s *exportService) ExportGrades(ctx context.Context, assignmentID uint) (GradeExport, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return GradeExport{}, ErrAssignmentNotFound
		}
		return GradeExport{}, err
	}

	questions, err := s.questions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return GradeExport{}, err
	}

	submissions, err := s.submissions.ListLatestByAssignment(ctx, assignmentID)
	if err != nil {
		return GradeExport{}, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close workbook")
		}
	}()

	index, err := f.NewSheet(gradeSheetName)
	if err != nil {
		return GradeExport{}, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return GradeExport{}, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	header := []interface{}{"Student", "Email", "Status", "Submitted At"}
	maxScore := 0.0
	for _, question := range questions {
		header = append(header, fmt.Sprintf("Q%d (%g)", question.Number, question.MaxPoints))
		maxScore += question.MaxPoints
	}
	header = append(header, fmt.Sprintf("Total (%g)", maxScore))
	if err := f.SetSheetRow(gradeSheetName, "A1", &header); err != nil {
		return GradeExport{}, fmt.Errorf("failed to write header: %w", err)
	}

	for i, submission := range submissions {
		row := exportRow(submission, questions)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return GradeExport{}, err
		}
		if err := f.SetSheetRow(gradeSheetName, cell, &row); err != nil {
			return GradeExport{}, fmt.Errorf("failed to write row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return GradeExport{}, fmt.Errorf("failed to write workbook: %w", err)
	}

	return GradeExport{
		Filename: exportFilename(assignment),
		Content:  buf.Bytes(),
	}, nil
}

func exportRow(submission models.Submission, questions []models.Question) []interface{} {
	byQuestion := make(map[uint]float64, len(submission.Grades))
	for _, grade := range submission.Grades {
		byQuestion[grade.QuestionID] = grade.Grade
	}

	row := []interface{}{
		submission.Student.FullName(),
		submission.Student.Email,
		submission.Status,
		submission.CreatedAt.UTC().Format("2006-01-02 15:04"),
	}
	for _, question := range questions {
		if value, ok := byQuestion[question.ID]; ok {
			row = append(row, value)
		} else {
			row = append(row, "")
		}
	}
	return append(row, sumGrades(submission.Grades))
}

func exportFilename(assignment models.Assignment) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(assignment.Title))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "assignment"
	}
	return fmt.Sprintf("%s-%d-grades.xlsx", slug, assignment.ID)
}
