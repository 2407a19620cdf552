package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ClearMarkApp/backend/internal/dto"
	"github.com/ClearMarkApp/backend/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type courseFixture struct {
	owner      models.User
	student    models.User
	course     models.Course
	assignment models.Assignment
	questions  []models.Question
}

func seedCourse(t *testing.T, db *gorm.DB) courseFixture {
	t.Helper()
	f := courseFixture{
		owner:   models.User{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", AccountType: models.AccountTypeInstructor},
		student: models.User{FirstName: "Linus", LastName: "Torvalds", Email: "linus@example.com", AccountType: models.AccountTypeStudent},
		course:  models.Course{Code: "OS101", Name: "Operating Systems"},
	}
	require.NoError(t, db.Create(&f.owner).Error)
	require.NoError(t, db.Create(&f.student).Error)
	require.NoError(t, db.Create(&f.course).Error)
	require.NoError(t, db.Create(&models.CourseEnrollment{UserID: f.owner.ID, CourseID: f.course.ID, Role: models.EnrollmentRoleOwner}).Error)
	require.NoError(t, db.Create(&models.CourseEnrollment{UserID: f.student.ID, CourseID: f.course.ID, Role: models.EnrollmentRoleStudent}).Error)

	f.assignment = models.Assignment{CourseID: f.course.ID, Title: "Scheduling", SubmissionType: "PDF", GradingGuidelines: "Reward clear reasoning."}
	require.NoError(t, db.Create(&f.assignment).Error)

	solution := "Round robin with a fixed quantum"
	f.questions = []models.Question{
		{AssignmentID: f.assignment.ID, Number: 1, Text: "Describe round robin", MaxPoints: 10, SolutionKey: &solution},
		{AssignmentID: f.assignment.ID, Number: 2, Text: "Define starvation", MaxPoints: 5},
	}
	require.NoError(t, db.Create(&f.questions).Error)

	return f
}

type recordingCache struct {
	mu          sync.Mutex
	assignments []uint
	courses     []uint
}

func (r *recordingCache) InvalidateAssignment(ctx context.Context, assignmentID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments = append(r.assignments, assignmentID)
}

func (r *recordingCache) InvalidateCourse(ctx context.Context, courseID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses = append(r.courses, courseID)
}

type stubActivityRecorder struct {
	entries []ActivityEntry
}

func (s *stubActivityRecorder) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	s.entries = append(s.entries, entry)
	return dto.ActivityResponse{Action: entry.Action}, nil
}

func ptrUint(v uint) *uint {
	return &v
}
