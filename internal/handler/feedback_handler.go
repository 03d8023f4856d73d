package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/service"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/utils"
)

// FeedbackHandler serves persisted grading results.
type FeedbackHandler struct {
	service service.FeedbackService
	logger  zerolog.Logger
}

// NewFeedbackHandler builds a feedback handler instance.
func NewFeedbackHandler(service service.FeedbackService, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
		logger:  logger.With().Str("component", "feedback_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *FeedbackHandler) Register(router fiber.Router) {
	router.Get("/:id/feedback", h.get)
}

func (h *FeedbackHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	feedback, err := h.service.GetForSubmission(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrFeedbackNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "feedback not found")
		}
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "feedback retrieved", feedback)
}
