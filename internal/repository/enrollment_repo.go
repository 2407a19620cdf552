package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/models"
)

// ErrLastOwner is returned when a change would leave a course without an owner.
var ErrLastOwner = errors.New("course must keep at least one owner")

// EnrollmentRepository persists course memberships.
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.CourseEnrollment) error
	GetByID(ctx context.Context, id uint) (models.CourseEnrollment, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.CourseEnrollment, error)
	UpdateRole(ctx context.Context, id uint, role string) (models.CourseEnrollment, error)
	Delete(ctx context.Context, id uint) error
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs the enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.CourseEnrollment) error {
	return r.db.WithContext(ctx).Omit("User", "Course").Create(enrollment).Error
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id uint) (models.CourseEnrollment, error) {
	var enrollment models.CourseEnrollment
	if err := r.db.WithContext(ctx).Preload("User").First(&enrollment, id).Error; err != nil {
		return models.CourseEnrollment{}, err
	}

	return enrollment, nil
}

func (r *enrollmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.CourseEnrollment, error) {
	var enrollments []models.CourseEnrollment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *enrollmentRepository) UpdateRole(ctx context.Context, id uint, role string) (models.CourseEnrollment, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.CourseEnrollment
		if err := tx.First(&current, id).Error; err != nil {
			return err
		}

		if current.IsOwner() && role != models.EnrollmentRoleOwner {
			if err := ensureAnotherOwner(tx, current.CourseID); err != nil {
				return err
			}
		}

		return tx.Model(&models.CourseEnrollment{}).Where("id = ?", id).Update("role", role).Error
	})
	if err != nil {
		return models.CourseEnrollment{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *enrollmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.CourseEnrollment
		if err := tx.First(&current, id).Error; err != nil {
			return err
		}

		if current.IsOwner() {
			if err := ensureAnotherOwner(tx, current.CourseID); err != nil {
				return err
			}
		}

		return tx.Delete(&models.CourseEnrollment{}, id).Error
	})
}

func ensureAnotherOwner(tx *gorm.DB, courseID uint) error {
	var owners int64
	err := tx.Model(&models.CourseEnrollment{}).
		Where("course_id = ? AND role = ?", courseID, models.EnrollmentRoleOwner).
		Count(&owners).Error
	if err != nil {
		return err
	}
	if owners <= 1 {
		return ErrLastOwner
	}

	return nil
}
