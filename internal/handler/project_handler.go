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

// ProjectHandler manages the final project slot endpoints.
type ProjectHandler struct {
	service   service.ProjectService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewProjectHandler builds a project handler instance.
func NewProjectHandler(service service.ProjectService, validator *validator.Validate, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "project_handler").Logger(),
	}
}

// Register attaches the student-facing routes to the provided group.
func (h *ProjectHandler) Register(router fiber.Router) {
	router.Get("/mine", h.mine)
	router.Post("", h.submit)
	router.Post("/:id/resubmit", h.resubmit)
}

// RegisterAdmin attaches the admin routes to the provided group.
func (h *ProjectHandler) RegisterAdmin(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/:id/review", h.review)
}

func (h *ProjectHandler) list(c *fiber.Ctx) error {
	var status *string
	if value := c.Query("status"); value != "" {
		status = &value
	}

	projects, err := h.service.List(c.Context(), actorFromContext(c), status)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "projects retrieved", projects)
}

func (h *ProjectHandler) mine(c *fiber.Ctx) error {
	project, err := h.service.GetMine(c.Context(), actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "project retrieved", project)
}

func (h *ProjectHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitProjectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	project, err := h.service.Submit(c.Context(), actorFromContext(c), payload, formFile(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendCreated(c, "project submitted", project)
}

func (h *ProjectHandler) review(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	project, err := h.service.Review(c.Context(), actorFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "project reviewed", project)
}

func (h *ProjectHandler) resubmit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmitProjectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	project, err := h.service.Resubmit(c.Context(), actorFromContext(c), id, payload, formFile(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "project resubmitted", project)
}

func (h *ProjectHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, lifecycle.ErrInvalidContent):
		return utils.SendError(c, fiber.StatusBadRequest, "answer text or artifact is required")
	case errors.Is(err, lifecycle.ErrMissingFeedback):
		return utils.SendError(c, fiber.StatusBadRequest, "feedback is required when rejecting")
	case errors.Is(err, lifecycle.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrProjectNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "project not found")
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return utils.SendError(c, fiber.StatusConflict, "project status does not allow this operation")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
