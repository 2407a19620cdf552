package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ClearMarkApp/backend/internal/config"
	"github.com/ClearMarkApp/backend/internal/database"
	"github.com/ClearMarkApp/backend/internal/handler"
	"github.com/ClearMarkApp/backend/internal/repository"
	"github.com/ClearMarkApp/backend/internal/router"
	"github.com/ClearMarkApp/backend/internal/service"
	"github.com/ClearMarkApp/backend/pkg/ai"
	cloud "github.com/ClearMarkApp/backend/pkg/cloudinary"
)

// application holds the long-lived connections and the services built on them.
type application struct {
	cfg    config.Config
	logger zerolog.Logger
	db     *gorm.DB
	redis  *redis.Client
	nats   *nats.Conn

	grading service.AIGradingService
	deps    router.Dependencies
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.AppName).
		Str("env", cfg.AppEnv).
		Logger()
}

func buildApplication(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*application, error) {
	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if redisClient == nil {
		logger.Warn().Msg("redis not configured, grading lock and assignment cache disabled")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
	if err != nil {
		return nil, err
	}

	storage, err := cloud.New(cloud.Config{
		CloudName:    cfg.CloudinaryCloudName,
		APIKey:       cfg.CloudinaryAPIKey,
		APISecret:    cfg.CloudinaryAPISecret,
		Folder:       cfg.CloudinaryUploadFolder,
		MaxFileBytes: int64(cfg.MaxUploadMB) << 20,
		FetchTimeout: cfg.StorageFetchTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}

	grader, err := ai.NewOpenAIGrader(ai.OpenAIConfig{
		APIKey:      cfg.AIAPIKey,
		BaseURL:     cfg.AIBaseURL,
		Model:       cfg.AIModel,
		MaxTokens:   cfg.AIMaxTokens,
		Temperature: cfg.AITemperature,
		Timeout:     cfg.AITimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ai grader: %w", err)
	}
	logger.Info().Str("model", grader.Model()).Msg("ai grader configured")

	validate := validator.New(validator.WithRequiredStructEnabled())

	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	questions := repository.NewQuestionRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	grades := repository.NewGradeRepository(db)

	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), validate, logger)
	assignmentService := service.NewAssignmentService(service.AssignmentRepositories{
		Assignments: assignments,
		Courses:     courses,
		Questions:   questions,
		Enrollments: enrollments,
		Submissions: submissions,
	}, redisClient, cfg.AssignmentCacheTTL, validate, logger)

	gradingDeps := service.AIGradingDependencies{
		Assignments: assignments,
		Questions:   questions,
		Submissions: submissions,
		Grades:      grades,
		Storage:     storage,
		Grader:      grader,
		Activity:    activityService,
		Cache:       assignmentService,
	}
	if redisClient != nil {
		gradingDeps.Lock = service.NewRedisGradingLock(redisClient, cfg.GradingLockTTL, logger)
	}
	if natsConn != nil {
		gradingDeps.Events = service.NewNATSGradingPublisher(natsConn, cfg.NATSSubjectPrefix)
	}
	gradingService := service.NewAIGradingService(gradingDeps, logger)

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return fmt.Errorf("nats status %s", natsConn.Status())
			}
			return nil
		}
	}

	return &application{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		redis:   redisClient,
		nats:    natsConn,
		grading: gradingService,
		deps: router.Dependencies{
			UserHandler: handler.NewUserHandler(service.NewUserService(users, courses, validate, logger), logger),
			CourseHandler: handler.NewCourseHandler(service.NewCourseService(service.CourseDependencies{
				Courses:     courses,
				Users:       users,
				Assignments: assignments,
				Enrollments: enrollments,
				Cache:       assignmentService,
				Activity:    activityService,
			}, validate, logger), logger),
			EnrollmentHandler: handler.NewEnrollmentHandler(service.NewEnrollmentService(enrollments, users, courses, assignmentService, validate, logger), logger),
			AssignmentHandler: handler.NewAssignmentHandler(assignmentService, service.NewExportService(assignments, questions, submissions, logger), logger),
			QuestionHandler:   handler.NewQuestionHandler(service.NewQuestionService(questions, assignments, assignmentService, validate, logger), logger),
			GradeHandler:      handler.NewGradeHandler(service.NewGradeService(grades, assignmentService, activityService, validate, logger), logger),
			SubmissionHandler: handler.NewSubmissionHandler(service.NewSubmissionService(service.SubmissionDependencies{
				Users:       users,
				Assignments: assignments,
				Submissions: submissions,
				Grades:      grades,
				Storage:     storage,
				Cache:       assignmentService,
				Activity:    activityService,
			}, cfg.MaxUploadMB, logger), logger),
			AIGradingHandler: handler.NewAIGradingHandler(gradingService, logger),
			ActivityHandler:  handler.NewActivityHandler(activityService, logger),
			HealthProbes:     probes,
		},
	}, nil
}

func (a *application) Close() {
	if a.nats != nil {
		if err := a.nats.Drain(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to drain nats connection")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
