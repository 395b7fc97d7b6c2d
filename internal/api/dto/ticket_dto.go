package dto

import (
	"time"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// CreateTicketRequest payload. OrgID falls back to the configured default organization.
type CreateTicketRequest struct {
	OrgID             string                `json:"org_id"`
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	CatalogItemID     *string               `json:"catalog_item_id"`
	CategoryID        *string               `json:"category_id"`
	CatalogCategoryID *string               `json:"catalog_category_id"`
	Priority          domain.TicketPriority `json:"priority"`
	Urgency           domain.TicketPriority `json:"urgency"`
	Impact            domain.TicketPriority `json:"impact"`
	DirectionID       *string               `json:"direction_id"`
	DepartmentID      *string               `json:"department_id"`
	SectionID         *string               `json:"section_id"`
	RequesterEmail    string                `json:"requester_email"`
}

// TicketResponse represents a routed ticket.
type TicketResponse struct {
	ID                string                `json:"id"`
	Number            string                `json:"number"`
	OrgID             string                `json:"org_id"`
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	Type              domain.TicketType     `json:"type"`
	Status            domain.TicketStatus   `json:"status"`
	Priority          domain.TicketPriority `json:"priority"`
	Source            domain.TicketSource   `json:"source"`
	CatalogItemID     *string               `json:"catalog_item_id"`
	CategoryID        *string               `json:"category_id"`
	CatalogCategoryID *string               `json:"catalog_category_id"`
	SLAID             *string               `json:"sla_id"`
	DirectionID       *string               `json:"direction_id"`
	DepartmentID      *string               `json:"department_id"`
	SectionID         *string               `json:"section_id"`
	AssigneeID        *string               `json:"assignee_id"`
	RequesterEmail    string                `json:"requester_email,omitempty"`
	Metadata          map[string]any        `json:"metadata,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	AuthorEmail string `json:"author_email"`
	Body        string `json:"body"`
}

// CommentResponse represents an appended comment.
type CommentResponse struct {
	ID          string                     `json:"id"`
	TicketID    string                     `json:"ticket_id"`
	AuthorEmail string                     `json:"author_email,omitempty"`
	Body        string                     `json:"body"`
	Source      domain.TicketSource        `json:"source"`
	Attachments []domain.AttachmentSummary `json:"attachments,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
}
