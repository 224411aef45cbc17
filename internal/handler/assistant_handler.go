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

// AssistantHandler exposes the course-scoped study assistant.
type AssistantHandler struct {
	service   service.AssistantService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssistantHandler builds an assistant handler instance.
func NewAssistantHandler(service service.AssistantService, validator *validator.Validate, logger zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "assistant_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AssistantHandler) Register(router fiber.Router) {
	router.Post("/ask", h.ask)
}

func (h *AssistantHandler) ask(c *fiber.Ctx) error {
	var payload dto.AssistantAskRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	reply, err := h.service.Ask(c.Context(), actorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assistant reply", reply)
}

func (h *AssistantHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, lifecycle.ErrInvalidContent):
		return utils.SendError(c, fiber.StatusBadRequest, "question must not be empty")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("assistant request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
