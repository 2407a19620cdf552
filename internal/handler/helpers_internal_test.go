package handler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/ClearMarkApp/backend/internal/service"
)

func TestClassifyError(t *testing.T) {
	validate := validator.New()
	validationErr := validate.Struct(struct {
		Email string `validate:"required"`
	}{})

	cases := []struct {
		err    error
		status int
		known  bool
	}{
		{validationErr, fiber.StatusBadRequest, true},
		{service.ErrCourseNotFound, fiber.StatusNotFound, true},
		{service.ErrLastCourseOwner, fiber.StatusBadRequest, true},
		{service.ErrUserExists, fiber.StatusConflict, true},
		{service.ErrAlreadyEnrolled, fiber.StatusConflict, true},
		{fmt.Errorf("%w: %w", service.ErrPersistence, errors.New("disk full")), 0, false},
		{errors.New("boom"), 0, false},
	}

	for _, tc := range cases {
		status, _, known := classifyError(tc.err)
		require.Equal(t, tc.known, known, tc.err)
		require.Equal(t, tc.status, status, tc.err)
	}

	_, message, _ := classifyError(fmt.Errorf("%w: 7 is not within 0 and 5", service.ErrGradeOutOfRange))
	require.Equal(t, "grade is outside the allowed range: 7 is not within 0 and 5", message)
}
