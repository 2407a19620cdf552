package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/models"
)

// SubmissionRepository persists student submissions.
type SubmissionRepository interface {
	FindLatest(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	ListLatestByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error)
	ReplaceForStudent(ctx context.Context, submission *models.Submission) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new submission repository instance.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// FindLatest returns the newest submission; equal timestamps resolve to the highest id.
func (r *submissionRepository) FindLatest(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Order("created_at DESC, id DESC").
		First(&submission).Error
	if err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// ListLatestByAssignment returns one submission per student with grades and student loaded.
func (r *submissionRepository) ListLatestByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Grades").
		Where("assignment_id = ?", assignmentID).
		Order("student_id ASC, created_at DESC, id DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}

	latest := make([]models.Submission, 0, len(submissions))
	seen := make(map[uint]struct{}, len(submissions))
	for _, submission := range submissions {
		if _, ok := seen[submission.StudentID]; ok {
			continue
		}
		seen[submission.StudentID] = struct{}{}
		latest = append(latest, submission)
	}

	return latest, nil
}

// ReplaceForStudent drops every earlier submission of the student for the assignment,
// their grades included, and stores the new one. The removed rows are returned so
// callers can clean up stored files.
func (r *submissionRepository) ReplaceForStudent(ctx context.Context, submission *models.Submission) ([]models.Submission, error) {
	var removed []models.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("assignment_id = ? AND student_id = ?", submission.AssignmentID, submission.StudentID).
			Find(&removed).Error; err != nil {
			return err
		}

		if len(removed) > 0 {
			ids := make([]uint, 0, len(removed))
			for _, item := range removed {
				ids = append(ids, item.ID)
			}
			if err := tx.Where("submission_id IN ?", ids).Delete(&models.Grade{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", ids).Delete(&models.Submission{}).Error; err != nil {
				return err
			}
		}

		return tx.Omit("Student", "Assignment", "Grades").Create(submission).Error
	})
	if err != nil {
		return nil, err
	}

	return removed, nil
}
