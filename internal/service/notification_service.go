package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/config"
	"github.com/spec-kit/ticket-router/internal/events"
)

// NotificationService turns routing events into requester acknowledgements and
// webhook deliveries. Both channels are log-only until real transports exist.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.onTicketRouted)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.onTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.onCommentAdded)
}

// routingFields describes where a ticket landed.
func routingFields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)),
	}
	switch payload := event.Payload.(type) {
	case events.TicketCreatedPayload:
		fields = append(fields,
			zap.String("number", payload.Number),
			zap.String("routing_path", string(payload.RoutingPath)),
			zap.String("priority", string(payload.Priority)),
			zap.String("status", string(payload.Status)))
		fields = appendRef(fields, "direction_id", payload.DirectionID)
		fields = appendRef(fields, "department_id", payload.DepartmentID)
		fields = appendRef(fields, "section_id", payload.SectionID)
		if payload.FallbackReason != "" {
			fields = append(fields, zap.String("fallback_reason", payload.FallbackReason))
		}
	case events.TicketAssignedPayload:
		fields = append(fields, zap.String("assignee_id", payload.AssigneeID))
	case events.TicketCommentAddedPayload:
		fields = append(fields,
			zap.String("comment_id", payload.CommentID),
			zap.Int("attachments", payload.Attachments))
	}
	return fields
}

func appendRef(fields []zap.Field, key string, ref *string) []zap.Field {
	if ref == nil {
		return fields
	}
	return append(fields, zap.String(key, *ref))
}

func (n *NotificationService) onTicketRouted(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket routed", routingFields(event)...)
	n.acknowledgeRequester(ctx, event)
	n.deliverWebhook(ctx, event)
	return nil
}

func (n *NotificationService) onTicketAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket assigned", routingFields(event)...)
	n.deliverWebhook(ctx, event)
	return nil
}

func (n *NotificationService) onCommentAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket comment added", routingFields(event)...)
	n.acknowledgeRequester(ctx, event)
	return nil
}

// acknowledgeRequester confirms receipt to whoever raised the event.
// System events carry no address and are skipped.
func (n *NotificationService) acknowledgeRequester(_ context.Context, event events.Event) {
	from := strings.TrimSpace(n.cfg.EmailFrom)
	if from == "" || event.Actor.Email == "" {
		return
	}
	fields := append(routingFields(event), zap.String("from", from), zap.String("to", event.Actor.Email))
	n.logger.Debug("requester acknowledgement queued", fields...)
}

func (n *NotificationService) deliverWebhook(_ context.Context, event events.Event) {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return
	}
	fields := append(routingFields(event), zap.String("url", url))
	n.logger.Debug("routing webhook queued", fields...)
}
