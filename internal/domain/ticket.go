package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen                  TicketStatus = "OPEN"
	TicketStatusInProgress            TicketStatus = "IN_PROGRESS"
	TicketStatusPending               TicketStatus = "PENDING"
	TicketStatusPendingAssignment     TicketStatus = "PENDING_ASSIGNMENT"
	TicketStatusPendingCategorization TicketStatus = "PENDING_CATEGORIZATION"
	TicketStatusResolved              TicketStatus = "RESOLVED"
	TicketStatusClosed                TicketStatus = "CLOSED"
)

// OpenTicketStatuses counts towards an agent's current load.
var OpenTicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusPending,
}

// TicketPriority enumerates the ITIL priority levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// TicketType is inferred from the originating catalog item.
type TicketType string

const (
	TicketTypeIncident       TicketType = "INCIDENT"
	TicketTypeServiceRequest TicketType = "SERVICE_REQUEST"
)

// TicketSource records the intake channel.
type TicketSource string

const (
	TicketSourcePortal TicketSource = "portal"
	TicketSourceEmail  TicketSource = "email"
	TicketSourceAPI    TicketSource = "api"
)

// Metadata keys carrying email provenance.
const (
	MetaEmailFrom        = "email_from"
	MetaEmailTo          = "email_to"
	MetaEmailMessageID   = "email_message_id"
	MetaEmailAttachments = "email_attachments"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                string
	Number            string
	OrgID             string
	CatalogItemID     *string
	CategoryID        *string
	CatalogCategoryID *string
	Type              TicketType
	Title             string
	Description       string
	Priority          TicketPriority
	Urgency           TicketPriority
	Impact            TicketPriority
	SLAID             *string
	DirectionID       *string
	DepartmentID      *string
	SectionID         *string
	AssigneeID        *string
	Status            TicketStatus
	Source            TicketSource
	RequesterEmail    string
	Metadata          map[string]any
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
