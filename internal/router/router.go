package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ClearMarkApp/backend/internal/config"
	"github.com/ClearMarkApp/backend/internal/handler"
	"github.com/ClearMarkApp/backend/internal/middleware"
	"github.com/ClearMarkApp/backend/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	UserHandler       *handler.UserHandler
	CourseHandler     *handler.CourseHandler
	EnrollmentHandler *handler.EnrollmentHandler
	AssignmentHandler *handler.AssignmentHandler
	QuestionHandler   *handler.QuestionHandler
	GradeHandler      *handler.GradeHandler
	SubmissionHandler *handler.SubmissionHandler
	AIGradingHandler  *handler.AIGradingHandler
	ActivityHandler   *handler.ActivityHandler
	HealthProbes      map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	// Health stays reachable without credentials.
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	secured := api.Group("", middleware.Authenticate(middleware.AuthConfig{
		APIKey:    cfg.APIKey,
		JWTSecret: cfg.JWTSecret,
	}))
	coursework := middleware.RequireCoursework()

	if deps.UserHandler != nil {
		deps.UserHandler.Register(secured.Group("/users"), coursework)
	}
	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(secured.Group("/courses"), coursework)
	}
	if deps.EnrollmentHandler != nil {
		deps.EnrollmentHandler.Register(secured.Group("/enrollments"), coursework)
	}
	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(secured.Group("/questions"), coursework)
	}
	if deps.GradeHandler != nil {
		deps.GradeHandler.Register(secured.Group("/grades"), coursework)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(secured.Group("/activity"), coursework)
	}

	if deps.AIGradingHandler != nil {
		deps.AIGradingHandler.Register(secured, coursework,
			middleware.RateLimit("ai-grading", cfg.GradingRateLimit, cfg.GradingRateWindow))
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(secured)
	}
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(secured.Group("/assignments"), coursework)
	}
}
