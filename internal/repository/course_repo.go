package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/models"
)

// CourseRepository persists courses and their cascading children.
type CourseRepository interface {
	CreateWithOwner(ctx context.Context, course *models.Course, ownerID uint) error
	GetByID(ctx context.Context, id uint) (models.Course, error)
	Delete(ctx context.Context, id uint) error
	ListOwnedBy(ctx context.Context, userID uint) ([]models.Course, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs the course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) CreateWithOwner(ctx context.Context, course *models.Course, ownerID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Enrollments", "Assignments").Create(course).Error; err != nil {
			return err
		}

		enrollment := models.CourseEnrollment{
			UserID:   ownerID,
			CourseID: course.ID,
			Role:     models.EnrollmentRoleOwner,
		}
		return tx.Omit("User", "Course").Create(&enrollment).Error
	})
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

// Delete removes the course with its enrollments, assignments, questions, submissions and grades.
func (r *courseRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignmentIDs := tx.Model(&models.Assignment{}).Select("id").Where("course_id = ?", id)
		submissionIDs := tx.Model(&models.Submission{}).Select("id").Where("assignment_id IN (?)", assignmentIDs)

		if err := tx.Where("submission_id IN (?)", submissionIDs).Delete(&models.Grade{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assignment_id IN (?)", assignmentIDs).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assignment_id IN (?)", assignmentIDs).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.Assignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.CourseEnrollment{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Course{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}

func (r *courseRepository) ListOwnedBy(ctx context.Context, userID uint) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.WithContext(ctx).
		Joins("JOIN course_enrollments ON course_enrollments.course_id = courses.id").
		Where("course_enrollments.user_id = ? AND course_enrollments.role = ?", userID, models.EnrollmentRoleOwner).
		Order("courses.created_at DESC, courses.id DESC").
		Find(&courses).Error
	if err != nil {
		return nil, err
	}

	return courses, nil
}
