package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ClearMarkApp/backend/internal/middleware"
	"github.com/ClearMarkApp/backend/internal/service"
	"github.com/ClearMarkApp/backend/internal/utils"
)

// SubmissionHandler manages submission uploads and the per-student view.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the API root; paths span users and assignments.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("/users/:userId/assignments/:assignmentId/upload", h.upload)
	router.Get("/assignments/:assignmentId/students/:studentId/submission", h.studentView)
}

func (h *SubmissionHandler) upload(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	assignmentID, err := parseUintParam(c, "assignmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if !canActFor(c, userID) {
		return utils.SendError(c, fiber.StatusForbidden, "cannot upload on behalf of another student")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return respondError(c, h.logger, service.ErrFileRequired)
	}

	submission, err := h.service.Upload(c.UserContext(), userID, assignmentID, file)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission uploaded", submission)
}

func (h *SubmissionHandler) studentView(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "assignmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if !canActFor(c, studentID) {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	view, err := h.service.GetForStudent(c.UserContext(), assignmentID, studentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", view)
}

// canActFor limits student tokens to their own records.
func canActFor(c *fiber.Ctx, userID uint) bool {
	if userRoleFromContext(c) != middleware.RoleStudent {
		return true
	}
	return userIDFromContext(c) == userID
}
