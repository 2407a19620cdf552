package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ClearMarkApp/backend/internal/middleware"
	"github.com/ClearMarkApp/backend/internal/service"
	"github.com/ClearMarkApp/backend/internal/utils"
	"github.com/ClearMarkApp/backend/pkg/ai"
)

const genericErrorMessage = "internal server error"

var (
	notFoundErrors = []error{
		service.ErrUserNotFound,
		service.ErrCourseNotFound,
		service.ErrEnrollmentNotFound,
		service.ErrAssignmentNotFound,
		service.ErrQuestionNotFound,
		service.ErrGradeNotFound,
		service.ErrSubmissionNotFound,
	}
	badRequestErrors = []error{
		service.ErrNoQuestions,
		service.ErrSubmissionFileMissing,
		service.ErrLastCourseOwner,
		service.ErrGradeOutOfRange,
		service.ErrFileRequired,
		service.ErrUploadTooLarge,
		service.ErrUploadTypeNotAllowed,
	}
	conflictErrors = []error{
		service.ErrUserExists,
		service.ErrAlreadyEnrolled,
		service.ErrGradingInProgress,
	}
)

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if id, ok := c.Locals("user_id").(uint); ok {
		return id
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if role, ok := c.Locals("user_role").(string); ok {
		return role
	}
	return ""
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	return service.ActivityActor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// guarded prepends an optional guard to a route handler chain.
func guarded(guard fiber.Handler, handler fiber.Handler) []fiber.Handler {
	if guard == nil {
		return []fiber.Handler{handler}
	}
	return []fiber.Handler{guard, handler}
}

// respondError maps service errors onto status codes. Unknown errors are logged
// and answered with a generic message.
func respondError(c *fiber.Ctx, base zerolog.Logger, err error) error {
	if status, message, ok := classifyError(err); ok {
		return utils.SendError(c, status, message)
	}

	requestLogger(base, c).Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return utils.SendError(c, fiber.StatusInternalServerError, genericErrorMessage)
}

func classifyError(err error) (int, string, bool) {
	if isValidationError(err) {
		return fiber.StatusBadRequest, err.Error(), true
	}
	if kind, ok := matchAny(err, notFoundErrors); ok {
		return fiber.StatusNotFound, kind.Error(), true
	}
	if kind, ok := matchAny(err, badRequestErrors); ok {
		message := kind.Error()
		if kind == service.ErrGradeOutOfRange {
			message = err.Error()
		}
		return fiber.StatusBadRequest, message, true
	}
	if kind, ok := matchAny(err, conflictErrors); ok {
		return fiber.StatusConflict, kind.Error(), true
	}
	if errors.Is(err, ai.ErrAITimeout) {
		return fiber.StatusGatewayTimeout, "grading timed out, please retry", true
	}
	return 0, "", false
}

func matchAny(err error, kinds []error) (error, bool) {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind, true
		}
	}
	return nil, false
}
