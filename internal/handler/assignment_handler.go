package handler

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ClearMarkApp/backend/internal/dto"
	"github.com/ClearMarkApp/backend/internal/service"
	"github.com/ClearMarkApp/backend/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AssignmentHandler exposes assignment endpoints.
type AssignmentHandler struct {
	service service.AssignmentService
	exports service.ExportService
	logger  zerolog.Logger
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(service service.AssignmentService, exports service.ExportService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		exports: exports,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router, write fiber.Handler) {
	router.Post("", guarded(write, h.create)...)
	router.Put("/grading-guidelines", guarded(write, h.updateGuidelines)...)
	router.Get("/:assignmentId", h.get)
	router.Get("/:assignmentId/grades/export", guarded(write, h.export)...)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "assignmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	detail, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	c.Set("X-Cache-Hit", strconv.FormatBool(detail.CacheHit))
	return utils.SendSuccess(c, "assignment retrieved", detail)
}

func (h *AssignmentHandler) updateGuidelines(c *fiber.Ctx) error {
	var payload dto.AssignmentGuidelinesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.UpdateGuidelines(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "grading guidelines updated", assignment)
}

func (h *AssignmentHandler) export(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "assignmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	export, err := h.exports.ExportGrades(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
	return c.Status(fiber.StatusOK).Send(export.Content)
}
