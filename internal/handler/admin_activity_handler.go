package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/service"
	"github.com/apexti/apex-go-api/internal/utils"
)

// AdminActivityHandler exposes the admin audit trail.
type AdminActivityHandler struct {
	service   service.ActivityService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminActivityHandler builds an activity handler instance.
func NewAdminActivityHandler(service service.ActivityService, validator *validator.Validate, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register binds the activity routes under the provided group.
func (h *AdminActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	actorID, err := parseQueryUint(c, "actor_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	query := dto.ActivityListQuery{
		ActorID:    actorID,
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		Page:       page,
		PageSize:   pageSize,
	}

	entries, err := h.service.List(c.Context(), query)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activity entries")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "activity retrieved", entries)
}
