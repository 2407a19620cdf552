package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ClearMarkApp/backend/internal/service"
	"github.com/ClearMarkApp/backend/internal/utils"
)

// AIGradingHandler triggers AI grading of a student's latest submission.
type AIGradingHandler struct {
	service service.AIGradingService
	logger  zerolog.Logger
}

// NewAIGradingHandler constructs the handler.
func NewAIGradingHandler(service service.AIGradingService, logger zerolog.Logger) *AIGradingHandler {
	return &AIGradingHandler{
		service: service,
		logger:  logger.With().Str("component", "ai_grading_handler").Logger(),
	}
}

// Register attaches the grading route. Guards run in order before the handler.
func (h *AIGradingHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	handlers := make([]fiber.Handler, 0, len(guards)+1)
	for _, guard := range guards {
		if guard != nil {
			handlers = append(handlers, guard)
		}
	}
	router.Get("/assignments/:assignmentId/user/:userId/ai-grading", append(handlers, h.grade)...)
}

func (h *AIGradingHandler) grade(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "assignmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.GradeLatest(c.UserContext(), assignmentID, userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("assignment_id", assignmentID).
		Uint("user_id", userID).
		Float64("total_score", result.TotalScore).
		Msg("submission graded")

	return utils.SendSuccess(c, "Submission graded successfully", result)
}
