package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ClearMarkApp/backend/internal/config"
	"github.com/ClearMarkApp/backend/internal/handler"
	"github.com/ClearMarkApp/backend/internal/middleware"
	"github.com/ClearMarkApp/backend/internal/models"
	"github.com/ClearMarkApp/backend/internal/repository"
	"github.com/ClearMarkApp/backend/internal/router"
	"github.com/ClearMarkApp/backend/internal/service"
	"github.com/ClearMarkApp/backend/pkg/ai"
)

const (
	testAPIKey    = "router-test-key"
	testJWTSecret = "router-test-secret"
)

const gradingContract = `{
  "type": "object",
  "required": ["message", "data"],
  "properties": {
    "message": {"const": "Submission graded successfully"},
    "data": {
      "type": "object",
      "required": ["submission_id", "total_score", "overall_feedback", "grades"],
      "properties": {
        "submission_id": {"type": "integer", "minimum": 1},
        "total_score": {"type": "number", "minimum": 0},
        "overall_feedback": {"type": "string"},
        "grades": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["question_id", "grade", "feedback"],
            "properties": {
              "question_id": {"type": "integer"},
              "grade": {"type": "number", "minimum": 0},
              "feedback": {"type": "string"}
            },
            "additionalProperties": false
          }
        }
      },
      "additionalProperties": false
    }
  }
}`

type memoryStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memoryStorage) Upload(_ context.Context, key string, reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = data
	return key, nil
}

func (m *memoryStorage) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("no such file %s", key)
	}
	return data, nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	return nil
}

func (m *memoryStorage) URL(key string) (string, error) {
	return "https://files.example.com/" + key, nil
}

// scriptedGrader awards every question 80% of its points with one over-limit answer.
type scriptedGrader struct{}

func (scriptedGrader) Grade(_ context.Context, req ai.GradingRequest) (ai.GradingResult, error) {
	result := ai.GradingResult{OverallFeedback: "<b>Good</b> effort"}
	for i, question := range req.Questions {
		grade := question.MaxPoints * 0.8
		if i == 0 {
			grade = question.MaxPoints + 3
		}
		result.Grades = append(result.Grades, ai.QuestionGrade{QuestionID: question.ID, Grade: grade, Feedback: "see rubric"})
	}
	return result, nil
}

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:router_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	log := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	storage := &memoryStorage{files: map[string][]byte{}}

	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	questions := repository.NewQuestionRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	grades := repository.NewGradeRepository(db)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), validate, log)
	assignmentService := service.NewAssignmentService(service.AssignmentRepositories{
		Assignments: assignments,
		Courses:     courses,
		Questions:   questions,
		Enrollments: enrollments,
		Submissions: submissions,
	}, nil, 0, validate, log)

	cfg := config.Config{
		AppName:           "ClearMark API",
		AppEnv:            "test",
		APIKey:            testAPIKey,
		JWTSecret:         testJWTSecret,
		GradingRateLimit:  100,
		GradingRateWindow: time.Minute,
	}

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &log})
	router.Register(app, cfg, router.Dependencies{
		UserHandler: handler.NewUserHandler(service.NewUserService(users, courses, validate, log), log),
		CourseHandler: handler.NewCourseHandler(service.NewCourseService(service.CourseDependencies{
			Courses:     courses,
			Users:       users,
			Assignments: assignments,
			Enrollments: enrollments,
			Cache:       assignmentService,
			Activity:    activity,
		}, validate, log), log),
		EnrollmentHandler: handler.NewEnrollmentHandler(service.NewEnrollmentService(enrollments, users, courses, assignmentService, validate, log), log),
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, service.NewExportService(assignments, questions, submissions, log), log),
		QuestionHandler:   handler.NewQuestionHandler(service.NewQuestionService(questions, assignments, assignmentService, validate, log), log),
		GradeHandler:      handler.NewGradeHandler(service.NewGradeService(grades, assignmentService, activity, validate, log), log),
		SubmissionHandler: handler.NewSubmissionHandler(service.NewSubmissionService(service.SubmissionDependencies{
			Users:       users,
			Assignments: assignments,
			Submissions: submissions,
			Grades:      grades,
			Storage:     storage,
			Cache:       assignmentService,
			Activity:    activity,
		}, 5, log), log),
		AIGradingHandler: handler.NewAIGradingHandler(service.NewAIGradingService(service.AIGradingDependencies{
			Assignments: assignments,
			Questions:   questions,
			Submissions: submissions,
			Grades:      grades,
			Storage:     storage,
			Grader:      scriptedGrader{},
			Activity:    activity,
			Cache:       assignmentService,
		}, log), log),
		ActivityHandler: handler.NewActivityHandler(activity, log),
		HealthProbes: map[string]handler.HealthProbe{
			"database": func(ctx context.Context) error { return sqlDB.PingContext(ctx) },
		},
	})

	return app, db
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func call(t *testing.T, app *fiber.App, method, path string, payload interface{}, headers map[string]string) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func serviceCall(t *testing.T, app *fiber.App, method, path string, payload interface{}, wantStatus int, out interface{}) {
	t.Helper()
	status, raw := call(t, app, method, path, payload, map[string]string{middleware.HeaderAPIKey: testAPIKey})
	require.Equal(t, wantStatus, status, string(raw))
	if out != nil {
		var env envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
}

func bearer(t *testing.T, userID uint, role string) map[string]string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  fmt.Sprint(userID),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return map[string]string{fiber.HeaderAuthorization: "Bearer " + signed}
}

func uploadPDF(t *testing.T, app *fiber.App, path string, headers map[string]string) int {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "answers.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n1 0 obj<<>>endobj\ntrailer<<>>\n%%EOF\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestHealthAndAuthentication(t *testing.T) {
	app, _ := setupApp(t)

	status, raw := call(t, app, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))

	status, _ = call(t, app, http.MethodGet, "/api/assignments/1", nil, nil)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, http.MethodGet, "/api/assignments/1", nil, map[string]string{middleware.HeaderAPIKey: "wrong"})
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = call(t, app, http.MethodPost, "/api/courses", map[string]string{"code": "X"}, bearer(t, 3, middleware.RoleStudent))
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = call(t, app, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, fiber.StatusOK, status)
}

func TestGradingWorkflow(t *testing.T) {
	app, db := setupApp(t)

	type idOnly struct {
		ID uint `json:"id"`
	}

	var instructor, student idOnly
	serviceCall(t, app, http.MethodPost, "/api/users", map[string]string{
		"first_name": "Grace", "last_name": "Hopper", "email": "grace@example.com", "account_type": "INSTRUCTOR",
	}, fiber.StatusCreated, &instructor)
	serviceCall(t, app, http.MethodPost, "/api/users", map[string]string{
		"first_name": "Linus", "last_name": "Torvalds", "email": "linus@example.com", "account_type": "STUDENT",
	}, fiber.StatusCreated, &student)
	serviceCall(t, app, http.MethodPost, "/api/users", map[string]string{
		"first_name": "Linus", "last_name": "Again", "email": "LINUS@example.com", "account_type": "STUDENT",
	}, fiber.StatusConflict, nil)

	var course idOnly
	serviceCall(t, app, http.MethodPost, "/api/courses", map[string]string{
		"code": "OS101", "name": "Operating Systems", "owner_email": "grace@example.com",
	}, fiber.StatusCreated, &course)
	serviceCall(t, app, http.MethodPost, "/api/enrollments", map[string]interface{}{
		"course_id": course.ID, "email": "linus@example.com",
	}, fiber.StatusCreated, nil)

	var assignment idOnly
	serviceCall(t, app, http.MethodPost, "/api/assignments", map[string]interface{}{
		"course_id": course.ID, "title": "Scheduling", "grading_guidelines": "Reward clear reasoning.",
	}, fiber.StatusCreated, &assignment)

	gradingPath := fmt.Sprintf("/api/assignments/%d/user/%d/ai-grading", assignment.ID, student.ID)
	status, raw := call(t, app, http.MethodGet, gradingPath, nil, map[string]string{middleware.HeaderAPIKey: testAPIKey})
	require.Equal(t, fiber.StatusBadRequest, status, string(raw))

	var q1, q2 idOnly
	serviceCall(t, app, http.MethodPost, "/api/questions", map[string]interface{}{
		"assignment_id": assignment.ID, "number": 1, "text": "Describe round robin", "max_points": 10,
	}, fiber.StatusCreated, &q1)
	serviceCall(t, app, http.MethodPost, "/api/questions", map[string]interface{}{
		"assignment_id": assignment.ID, "number": 2, "text": "Define starvation", "max_points": 5,
	}, fiber.StatusCreated, &q2)

	status, raw = call(t, app, http.MethodGet, gradingPath, nil, map[string]string{middleware.HeaderAPIKey: testAPIKey})
	require.Equal(t, fiber.StatusNotFound, status, string(raw))

	uploadPath := fmt.Sprintf("/api/users/%d/assignments/%d/upload", student.ID, assignment.ID)
	require.Equal(t, fiber.StatusForbidden, uploadPDF(t, app, uploadPath, bearer(t, instructor.ID+100, middleware.RoleStudent)))
	require.Equal(t, fiber.StatusCreated, uploadPDF(t, app, uploadPath, bearer(t, student.ID, middleware.RoleStudent)))

	status, _ = call(t, app, http.MethodGet, gradingPath, nil, bearer(t, student.ID, middleware.RoleStudent))
	require.Equal(t, fiber.StatusForbidden, status)

	status, raw = call(t, app, http.MethodGet, gradingPath, nil, bearer(t, instructor.ID, middleware.RoleInstructor))
	require.Equal(t, fiber.StatusOK, status, string(raw))

	compiler := jsonschema.NewCompiler()
	require.NoError(t, compiler.AddResource("grading-response.json", strings.NewReader(gradingContract)))
	contract, err := compiler.Compile("grading-response.json")
	require.NoError(t, err)
	var document interface{}
	require.NoError(t, json.Unmarshal(raw, &document))
	require.NoError(t, contract.Validate(document))

	var graded struct {
		Data struct {
			SubmissionID    uint    `json:"submission_id"`
			TotalScore      float64 `json:"total_score"`
			OverallFeedback string  `json:"overall_feedback"`
			Grades          []struct {
				QuestionID uint    `json:"question_id"`
				Grade      float64 `json:"grade"`
			} `json:"grades"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &graded))
	require.Equal(t, 14.0, graded.Data.TotalScore)
	require.Equal(t, "Good effort", graded.Data.OverallFeedback)
	require.Len(t, graded.Data.Grades, 2)
	require.Equal(t, q1.ID, graded.Data.Grades[0].QuestionID)
	require.Equal(t, 10.0, graded.Data.Grades[0].Grade)

	// Re-grading replaces rather than appends.
	status, _ = call(t, app, http.MethodGet, gradingPath, nil, map[string]string{middleware.HeaderAPIKey: testAPIKey})
	require.Equal(t, fiber.StatusOK, status)
	var stored int64
	require.NoError(t, db.Model(&models.Grade{}).Where("submission_id = ?", graded.Data.SubmissionID).Count(&stored).Error)
	require.Equal(t, int64(2), stored)

	var view struct {
		Submission struct {
			Status string `json:"status"`
		} `json:"submission"`
		Grades []struct {
			ID             uint `json:"id"`
			QuestionNumber int  `json:"question_number"`
		} `json:"grades"`
		TotalScore float64 `json:"total_score"`
	}
	serviceCall(t, app, http.MethodGet, fmt.Sprintf("/api/assignments/%d/students/%d/submission", assignment.ID, student.ID), nil, fiber.StatusOK, &view)
	require.Equal(t, models.SubmissionStatusGraded, view.Submission.Status)
	require.Len(t, view.Grades, 2)
	require.Equal(t, 1, view.Grades[0].QuestionNumber)

	serviceCall(t, app, http.MethodPut, "/api/grades", map[string]interface{}{
		"grade_id": view.Grades[1].ID, "grade": 9,
	}, fiber.StatusBadRequest, nil)
	serviceCall(t, app, http.MethodPut, "/api/grades", map[string]interface{}{
		"grade_id": view.Grades[1].ID, "grade": 5, "feedback": "Reviewed",
	}, fiber.StatusOK, nil)

	var detail struct {
		MaxScore    float64 `json:"max_score"`
		Submissions []struct {
			TotalScore float64 `json:"total_score"`
		} `json:"submissions"`
	}
	serviceCall(t, app, http.MethodGet, fmt.Sprintf("/api/assignments/%d", assignment.ID), nil, fiber.StatusOK, &detail)
	require.Equal(t, 15.0, detail.MaxScore)
	require.Len(t, detail.Submissions, 1)
	require.Equal(t, 15.0, detail.Submissions[0].TotalScore)

	status, raw = call(t, app, http.MethodGet, fmt.Sprintf("/api/assignments/%d/grades/export", assignment.ID), nil, map[string]string{middleware.HeaderAPIKey: testAPIKey})
	require.Equal(t, fiber.StatusOK, status)
	require.True(t, bytes.HasPrefix(raw, []byte("PK")))

	var entries []struct {
		Action string `json:"action"`
	}
	serviceCall(t, app, http.MethodGet, "/api/activity?entity_type=submission", nil, fiber.StatusOK, &entries)
	actions := make([]string, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.Action)
	}
	require.Contains(t, actions, "submission.uploaded")
	require.Contains(t, actions, "submission.ai_graded")
}

func TestEnrollmentOwnerGuardOverHTTP(t *testing.T) {
	app, db := setupApp(t)

	var owner struct {
		ID uint `json:"id"`
	}
	serviceCall(t, app, http.MethodPost, "/api/users", map[string]string{
		"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com", "account_type": "INSTRUCTOR",
	}, fiber.StatusCreated, &owner)

	var course struct {
		ID uint `json:"id"`
	}
	serviceCall(t, app, http.MethodPost, "/api/courses", map[string]string{
		"code": "CS1", "name": "Computing", "owner_email": "ada@example.com",
	}, fiber.StatusCreated, &course)
	serviceCall(t, app, http.MethodPost, "/api/courses", map[string]string{
		"code": "CS2", "name": "Ghosts", "owner_email": "ghost@example.com",
	}, fiber.StatusNotFound, nil)

	var enrollment models.CourseEnrollment
	require.NoError(t, db.Where("course_id = ?", course.ID).First(&enrollment).Error)

	serviceCall(t, app, http.MethodPut, "/api/enrollments/role", map[string]interface{}{
		"enrollment_id": enrollment.ID, "role": "STUDENT",
	}, fiber.StatusBadRequest, nil)
	serviceCall(t, app, http.MethodDelete, fmt.Sprintf("/api/enrollments/%d", enrollment.ID), nil, fiber.StatusBadRequest, nil)

	var owned []struct {
		Code string `json:"code"`
	}
	serviceCall(t, app, http.MethodPost, "/api/users/classes", map[string]string{"email": "ada@example.com"}, fiber.StatusOK, &owned)
	require.Len(t, owned, 1)
	require.Equal(t, "CS1", owned[0].Code)

	serviceCall(t, app, http.MethodDelete, fmt.Sprintf("/api/courses/%d", course.ID), nil, fiber.StatusOK, nil)
	serviceCall(t, app, http.MethodGet, fmt.Sprintf("/api/courses/%d", course.ID), nil, fiber.StatusNotFound, nil)
}
