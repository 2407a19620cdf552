package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/models"
)

// GradeRepository persists per-question grades.
type GradeRepository interface {
	ReplaceForSubmission(ctx context.Context, submissionID uint, grades []models.Grade) error
	GetByID(ctx context.Context, id uint) (models.Grade, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Grade, error)
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.Grade, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository constructs the grade repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

// ReplaceForSubmission swaps the whole grade set of a submission and marks it graded.
// Either every step commits or none does.
func (r *gradeRepository) ReplaceForSubmission(ctx context.Context, submissionID uint, grades []models.Grade) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", submissionID).Delete(&models.Grade{}).Error; err != nil {
			return err
		}

		if len(grades) > 0 {
			rows := make([]models.Grade, len(grades))
			for i, grade := range grades {
				rows[i] = models.Grade{
					SubmissionID: submissionID,
					QuestionID:   grade.QuestionID,
					Grade:        grade.Grade,
					Feedback:     grade.Feedback,
				}
			}
			if err := tx.Omit("Question").Create(&rows).Error; err != nil {
				return err
			}
		}

		update := tx.Model(&models.Submission{}).
			Where("id = ?", submissionID).
			Update("status", models.SubmissionStatusGraded)
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}

func (r *gradeRepository) GetByID(ctx context.Context, id uint) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).Preload("Question").First(&grade, id).Error; err != nil {
		return models.Grade{}, err
	}

	return grade, nil
}

func (r *gradeRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Grade, error) {
	result := r.db.WithContext(ctx).Model(&models.Grade{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return models.Grade{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Grade{}, gorm.ErrRecordNotFound
	}

	return r.GetByID(ctx, id)
}

// ListBySubmission returns grades ordered by question number.
func (r *gradeRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.Grade, error) {
	var grades []models.Grade
	err := r.db.WithContext(ctx).
		Preload("Question").
		Joins("JOIN questions ON questions.id = grades.question_id").
		Where("grades.submission_id = ?", submissionID).
		Order("questions.number ASC, grades.id ASC").
		Find(&grades).Error
	if err != nil {
		return nil, err
	}

	return grades, nil
}
