package domain

import "time"

// SLA is a response/resolution commitment keyed by priority and optionally category.
type SLA struct {
	ID                string
	OrgID             string
	Name              string
	Priority          TicketPriority
	CategoryID        *string
	ResponseMinutes   int
	ResolutionMinutes int
	Active            bool
	CreatedAt         time.Time
}
