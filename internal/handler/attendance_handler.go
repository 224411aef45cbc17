package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/service"
	"github.com/apexti/apex-go-api/internal/utils"
)

// AttendanceHandler manages daily check-in endpoints.
type AttendanceHandler struct {
	service   service.AttendanceService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAttendanceHandler builds an attendance handler instance.
func NewAttendanceHandler(service service.AttendanceService, validator *validator.Validate, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AttendanceHandler) Register(router fiber.Router) {
	router.Post("/check-in", h.checkIn)
	router.Get("", h.list)
}

func (h *AttendanceHandler) checkIn(c *fiber.Ctx) error {
	record, err := h.service.CheckIn(c.Context(), actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendCreated(c, "attendance recorded", record)
}

func (h *AttendanceHandler) list(c *fiber.Ctx) error {
	studentID, err := parseQueryUint(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	query := dto.AttendanceListQuery{
		StudentID: studentID,
		FromDay:   c.Query("from"),
		ToDay:     c.Query("to"),
	}

	records, err := h.service.List(c.Context(), actorFromContext(c), query)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance retrieved", records)
}

func (h *AttendanceHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, lifecycle.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrAlreadyCheckedIn):
		return utils.SendError(c, fiber.StatusConflict, "attendance already recorded for today")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
