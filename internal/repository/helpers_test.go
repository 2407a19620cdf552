package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ClearMarkApp/backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type fixture struct {
	instructor models.User
	student    models.User
	course     models.Course
	assignment models.Assignment
	questions  []models.Question
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	f := fixture{
		instructor: models.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", AccountType: models.AccountTypeInstructor},
		student:    models.User{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", AccountType: models.AccountTypeStudent},
		course:     models.Course{Code: "CS101", Name: "Intro to Computing", Colour: "#3366ff"},
	}
	require.NoError(t, db.Create(&f.instructor).Error)
	require.NoError(t, db.Create(&f.student).Error)
	require.NoError(t, db.Create(&f.course).Error)

	f.assignment = models.Assignment{CourseID: f.course.ID, Title: "Homework 1", SubmissionType: "PDF"}
	require.NoError(t, db.Create(&f.assignment).Error)

	f.questions = []models.Question{
		{AssignmentID: f.assignment.ID, Number: 2, Text: "Explain recursion", MaxPoints: 5},
		{AssignmentID: f.assignment.ID, Number: 1, Text: "Define an algorithm", MaxPoints: 10},
	}
	require.NoError(t, db.Create(&f.questions).Error)

	return f
}
