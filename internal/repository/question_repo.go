package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/models"
)

// QuestionRepository persists assignment questions.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Question, error)
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository constructs the question repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return models.Question{}, err
	}

	return question, nil
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question) error {
	result := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", question.ID).
		Updates(map[string]interface{}{
			"number":       question.Number,
			"text":         question.Text,
			"max_points":   question.MaxPoints,
			"solution_key": question.SolutionKey,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return r.db.WithContext(ctx).First(question, question.ID).Error
}

// Delete removes the question together with any grades awarded for it.
func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&models.Grade{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Question{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}

// ListByAssignment returns questions in presentation order.
func (r *questionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Question, error) {
	var questions []models.Question
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("number ASC, id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}

	return questions, nil
}
