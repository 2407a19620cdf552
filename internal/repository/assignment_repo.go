package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/models"
)

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Assignment, error)
	CountSubmissionsByCourse(ctx context.Context, courseID uint) (map[uint]int64, error)
	UpdateGuidelines(ctx context.Context, id uint, guidelines string) (models.Assignment, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Omit("Questions", "Submissions").Create(assignment).Error
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("due_date ASC, id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) CountSubmissionsByCourse(ctx context.Context, courseID uint) (map[uint]int64, error) {
	type row struct {
		AssignmentID uint
		Total        int64
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("submissions.assignment_id AS assignment_id, COUNT(submissions.id) AS total").
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Where("assignments.course_id = ?", courseID).
		Group("submissions.assignment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, item := range rows {
		counts[item.AssignmentID] = item.Total
	}

	return counts, nil
}

func (r *assignmentRepository) UpdateGuidelines(ctx context.Context, id uint, guidelines string) (models.Assignment, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		Update("grading_guidelines", guidelines)
	if result.Error != nil {
		return models.Assignment{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}

	return r.GetByID(ctx, id)
}
