package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/dto"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/models"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/queue"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/service"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/utils"
)

// QueueHandler exposes the grading queue's intake and operator endpoints.
type QueueHandler struct {
	queue  *queue.Queue
	logger zerolog.Logger
}

// NewQueueHandler builds a queue handler instance.
func NewQueueHandler(q *queue.Queue, logger zerolog.Logger) *QueueHandler {
	return &QueueHandler{
		queue:  q,
		logger: logger.With().Str("component", "queue_handler").Logger(),
	}
}

// RegisterIntake attaches the submission intake route.
func (h *QueueHandler) RegisterIntake(router fiber.Router) {
	router.Post("/:id/enqueue", h.enqueue)
}

// RegisterOperator attaches the operator routes.
func (h *QueueHandler) RegisterOperator(router fiber.Router) {
	router.Get("/stats", h.stats)
	router.Post("/retry-failed", h.retryFailed)
}

func (h *QueueHandler) enqueue(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.queue.Enqueue(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "submission enqueued", dto.EnqueueResponse{
		SubmissionID: id,
		Status:       models.SubmissionStatusPending,
	})
}

func (h *QueueHandler) stats(c *fiber.Ctx) error {
	stats, err := h.queue.Stats(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "queue stats", stats)
}

func (h *QueueHandler) retryFailed(c *fiber.Ctx) error {
	count, err := h.queue.RetryFailed(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "failed submissions re-enqueued", dto.RetryFailedResponse{Retried: count})
}

func (h *QueueHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, queue.ErrQueueClosed):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "queue is shutting down")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
