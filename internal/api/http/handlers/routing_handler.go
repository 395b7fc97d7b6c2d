package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-router/internal/api/dto"
	"github.com/spec-kit/ticket-router/internal/ingestion"
	"github.com/spec-kit/ticket-router/internal/priority"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// Poller runs one ingestion batch.
type Poller interface {
	Poll(ctx context.Context) (ingestion.PollResult, error)
}

// RoutingHandler exposes the priority matrix and manual ingestion trigger.
type RoutingHandler struct {
	poller Poller
}

// NewRoutingHandler constructs handler. poller may be nil when ingestion is disabled.
func NewRoutingHandler(poller Poller) *RoutingHandler {
	return &RoutingHandler{poller: poller}
}

// Priority GET /api/v1/priority?urgency=&impact=.
func (h *RoutingHandler) Priority(c *fiber.Ctx) error {
	urgency := priority.Parse(c.Query("urgency"))
	impact := priority.Parse(c.Query("impact"))
	if urgency == "" || impact == "" {
		return apperrors.NewValidationError("urgency and impact must be one of LOW, MEDIUM, HIGH, CRITICAL", map[string]any{
			"urgency": c.Query("urgency"),
			"impact":  c.Query("impact"),
		})
	}
	return c.JSON(fiber.Map{"data": dto.PriorityResponse{
		Urgency:  urgency,
		Impact:   impact,
		Priority: priority.Calculate(urgency, impact),
	}})
}

// Poll POST /api/v1/ingestion/poll.
func (h *RoutingHandler) Poll(c *fiber.Ctx) error {
	if h.poller == nil {
		return apperrors.NewUnavailable("email ingestion is disabled")
	}
	result, err := h.poller.Poll(c.UserContext())
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if result.Skipped {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.PollResponse{
		Fetched:  result.Fetched,
		Created:  result.Created,
		Appended: result.Appended,
		Failed:   result.Failed,
		Skipped:  result.Skipped,
	}})
}
