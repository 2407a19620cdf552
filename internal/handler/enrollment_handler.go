package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ClearMarkApp/backend/internal/dto"
	"github.com/ClearMarkApp/backend/internal/service"
	"github.com/ClearMarkApp/backend/internal/utils"
)

// EnrollmentHandler manages course membership.
type EnrollmentHandler struct {
	service service.EnrollmentService
	logger  zerolog.Logger
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(service service.EnrollmentService, logger zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service: service,
		logger:  logger.With().Str("component", "enrollment_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. Every route mutates membership.
func (h *EnrollmentHandler) Register(router fiber.Router, write fiber.Handler) {
	router.Post("", guarded(write, h.enroll)...)
	router.Put("/role", guarded(write, h.updateRole)...)
	router.Delete("/:enrollmentId", guarded(write, h.remove)...)
}

func (h *EnrollmentHandler) enroll(c *fiber.Ctx) error {
	var payload dto.EnrollmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	enrollment, err := h.service.Enroll(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user enrolled", enrollment)
}

func (h *EnrollmentHandler) updateRole(c *fiber.Ctx) error {
	var payload dto.EnrollmentRoleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	enrollment, err := h.service.UpdateRole(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "enrollment updated", enrollment)
}

func (h *EnrollmentHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "enrollmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Remove(c.UserContext(), id); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "enrollment removed", nil)
}
