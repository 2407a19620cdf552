package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/ClearMarkApp/backend/internal/config"
	"github.com/ClearMarkApp/backend/internal/database"
	"github.com/ClearMarkApp/backend/internal/middleware"
	"github.com/ClearMarkApp/backend/internal/router"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clearmark",
		Short:        "ClearMark grading API",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, migrateCmd(), gradeCmd())

	// "serve" runs when no subcommand is given.
	root.RunE = serve.RunE

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	cmd.Flags().Bool("migrate", true, "Run schema migrations before serving")
	cmd.Flags().Bool("access-log", false, "Emit fiber access logs")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			db, err := database.ConnectPostgres(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}

			logger.Info().Msg("database migrated")
			return nil
		},
	}
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "AI-grade a student's latest submission and print the result",
		RunE:  runGrade,
	}
	cmd.Flags().Uint("assignment", 0, "Assignment id (required)")
	cmd.Flags().Uint("user", 0, "Student user id (required)")
	_ = cmd.MarkFlagRequired("assignment")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := database.Migrate(app.db); err != nil {
			return err
		}
	}

	server := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.MaxUploadMB + 1) << 20,
	})

	accessLog, _ := cmd.Flags().GetBool("access-log")
	middleware.Register(server, middleware.Config{Logger: &logger, AccessLog: accessLog})
	router.Register(server, cfg, app.deps)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("http server listening")
		errCh <- server.Listen(cfg.HTTPAddress())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
	return nil
}

func runGrade(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)

	assignmentID, _ := cmd.Flags().GetUint("assignment")
	userID, _ := cmd.Flags().GetUint("user")

	app, err := buildApplication(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := middleware.ContextWithCorrelation(cmd.Context(), fmt.Sprintf("cli-%d-%d", assignmentID, userID))
	result, err := app.grading.GradeLatest(ctx, assignmentID, userID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
