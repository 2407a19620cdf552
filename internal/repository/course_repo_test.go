package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/models"
)

func TestCourseRepositoryCreateWithOwnerAndDelete(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := NewCourseRepository(db)

	course := models.Course{Code: "CS201", Name: "Data Structures"}
	require.NoError(t, repo.CreateWithOwner(context.Background(), &course, f.instructor.ID))
	require.NotZero(t, course.ID)

	owned, err := repo.ListOwnedBy(context.Background(), f.instructor.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	require.Equal(t, "CS201", owned[0].Code)

	assignment := models.Assignment{CourseID: course.ID, Title: "Trees"}
	require.NoError(t, db.Create(&assignment).Error)
	question := models.Question{AssignmentID: assignment.ID, Number: 1, Text: "Balance it", MaxPoints: 3}
	require.NoError(t, db.Create(&question).Error)
	submission := models.Submission{AssignmentID: assignment.ID, StudentID: f.student.ID, Status: models.SubmissionStatusGraded}
	require.NoError(t, db.Create(&submission).Error)
	require.NoError(t, db.Create(&models.Grade{SubmissionID: submission.ID, QuestionID: question.ID, Grade: 2}).Error)

	require.NoError(t, repo.Delete(context.Background(), course.ID))

	var remaining int64
	require.NoError(t, db.Model(&models.Grade{}).Count(&remaining).Error)
	require.Zero(t, remaining)
	require.NoError(t, db.Model(&models.Assignment{}).Where("course_id = ?", course.ID).Count(&remaining).Error)
	require.Zero(t, remaining)
	require.NoError(t, db.Model(&models.Question{}).Where("id = ?", f.questions[0].ID).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining, "other courses must be untouched")

	require.ErrorIs(t, repo.Delete(context.Background(), course.ID), gorm.ErrRecordNotFound)
}

func TestEnrollmentRepositoryGuardsLastOwner(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	courses := NewCourseRepository(db)
	repo := NewEnrollmentRepository(db)

	course := models.Course{Code: "CS301", Name: "Compilers"}
	require.NoError(t, courses.CreateWithOwner(context.Background(), &course, f.instructor.ID))

	members, err := repo.ListByCourse(context.Background(), course.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	owner := members[0]
	require.True(t, owner.IsOwner())
	require.Equal(t, "ada@example.com", owner.User.Email)

	_, err = repo.UpdateRole(context.Background(), owner.ID, models.EnrollmentRoleInstructor)
	require.ErrorIs(t, err, ErrLastOwner)
	require.ErrorIs(t, repo.Delete(context.Background(), owner.ID), ErrLastOwner)

	second := models.CourseEnrollment{UserID: f.student.ID, CourseID: course.ID, Role: models.EnrollmentRoleStudent}
	require.NoError(t, repo.Create(context.Background(), &second))

	promoted, err := repo.UpdateRole(context.Background(), second.ID, models.EnrollmentRoleOwner)
	require.NoError(t, err)
	require.True(t, promoted.IsOwner())

	require.NoError(t, repo.Delete(context.Background(), owner.ID))
	_, err = repo.GetByID(context.Background(), owner.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
