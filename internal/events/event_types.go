package events

import (
	"time"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketAssigned     EventType = "ticket_assigned"
	EventTicketCommentAdded EventType = "ticket_comment_added"
)

// Actor identifies who caused an event. Email is set for inbound mail and API callers that supply one.
type Actor struct {
	Source domain.TicketSource `json:"source"`
	Email  string              `json:"email,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number         string                `json:"number"`
	RoutingPath    domain.RoutingPath    `json:"routing_path"`
	FallbackReason string                `json:"fallback_reason,omitempty"`
	DirectionID    *string               `json:"direction_id,omitempty"`
	DepartmentID   *string               `json:"department_id,omitempty"`
	SectionID      *string               `json:"section_id,omitempty"`
	Priority       domain.TicketPriority `json:"priority"`
	Status         domain.TicketStatus   `json:"status"`
	Title          string                `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID string `json:"assignee_id"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	AuthorEmail string `json:"author_email,omitempty"`
	BodyPreview string `json:"body_preview"`
	Attachments int    `json:"attachments"`
}
