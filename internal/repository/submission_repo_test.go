package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/models"
)

func TestSubmissionRepositoryFindLatestBreaksTiesByID(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := NewSubmissionRepository(db)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	older := models.Submission{AssignmentID: f.assignment.ID, StudentID: f.student.ID, Status: models.SubmissionStatusSubmitted, CreatedAt: at.Add(-time.Hour)}
	tieA := models.Submission{AssignmentID: f.assignment.ID, StudentID: f.student.ID, Status: models.SubmissionStatusSubmitted, CreatedAt: at}
	tieB := models.Submission{AssignmentID: f.assignment.ID, StudentID: f.student.ID, Status: models.SubmissionStatusSubmitted, CreatedAt: at}
	require.NoError(t, db.Create(&older).Error)
	require.NoError(t, db.Create(&tieA).Error)
	require.NoError(t, db.Create(&tieB).Error)

	latest, err := repo.FindLatest(context.Background(), f.assignment.ID, f.student.ID)
	require.NoError(t, err)
	require.Equal(t, tieB.ID, latest.ID)

	_, err = repo.FindLatest(context.Background(), f.assignment.ID, f.instructor.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionRepositoryReplaceForStudentDropsOlderRows(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := NewSubmissionRepository(db)

	oldKey := "submissions/old.pdf"
	old := models.Submission{AssignmentID: f.assignment.ID, StudentID: f.student.ID, FileKey: &oldKey, Status: models.SubmissionStatusGraded}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&models.Grade{SubmissionID: old.ID, QuestionID: f.questions[0].ID, Grade: 4}).Error)

	newKey := "submissions/new.pdf"
	fresh := models.Submission{AssignmentID: f.assignment.ID, StudentID: f.student.ID, FileKey: &newKey, Status: models.SubmissionStatusSubmitted}
	removed, err := repo.ReplaceForStudent(context.Background(), &fresh)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	require.Equal(t, oldKey, *removed[0].FileKey)
	require.NotZero(t, fresh.ID)

	var submissions, grades int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&submissions).Error)
	require.NoError(t, db.Model(&models.Grade{}).Count(&grades).Error)
	require.Equal(t, int64(1), submissions)
	require.Zero(t, grades)
}

func TestSubmissionRepositoryListLatestByAssignment(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := NewSubmissionRepository(db)

	at := time.Now().Add(-time.Hour)
	first := models.Submission{AssignmentID: f.assignment.ID, StudentID: f.student.ID, Status: models.SubmissionStatusSubmitted, CreatedAt: at}
	second := models.Submission{AssignmentID: f.assignment.ID, StudentID: f.student.ID, Status: models.SubmissionStatusGraded, CreatedAt: at.Add(time.Minute)}
	other := models.Submission{AssignmentID: f.assignment.ID, StudentID: f.instructor.ID, Status: models.SubmissionStatusSubmitted, CreatedAt: at}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)
	require.NoError(t, db.Create(&other).Error)
	require.NoError(t, db.Create(&models.Grade{SubmissionID: second.ID, QuestionID: f.questions[1].ID, Grade: 8}).Error)

	latest, err := repo.ListLatestByAssignment(context.Background(), f.assignment.ID)
	require.NoError(t, err)
	require.Len(t, latest, 2)

	byStudent := map[uint]models.Submission{}
	for _, item := range latest {
		byStudent[item.StudentID] = item
	}
	require.Equal(t, second.ID, byStudent[f.student.ID].ID)
	require.Len(t, byStudent[f.student.ID].Grades, 1)
	require.Equal(t, "alan@example.com", byStudent[f.student.ID].Student.Email)
}
