package dto

import "github.com/spec-kit/ticket-router/internal/domain"

// ValidateEmailRequest asks whether email may be attached to a unit.
// ExcludeKind and ExcludeID name the unit being edited.
type ValidateEmailRequest struct {
	OrgID       string          `json:"org_id"`
	Email       string          `json:"email"`
	ExcludeKind domain.UnitKind `json:"exclude_kind"`
	ExcludeID   string          `json:"exclude_id"`
}

// ValidateEmailResponse mirrors the uniqueness result.
type ValidateEmailResponse struct {
	Valid        bool            `json:"valid"`
	Reason       string          `json:"reason,omitempty"`
	ConflictKind domain.UnitKind `json:"conflict_kind,omitempty"`
	ConflictID   string          `json:"conflict_id,omitempty"`
}

// ResolvedUnitResponse names the unit owning an address.
type ResolvedUnitResponse struct {
	Kind domain.UnitKind `json:"kind"`
	ID   string          `json:"id"`
	Name string          `json:"name"`
}

// PriorityResponse is the matrix lookup result.
type PriorityResponse struct {
	Urgency  domain.TicketPriority `json:"urgency"`
	Impact   domain.TicketPriority `json:"impact"`
	Priority domain.TicketPriority `json:"priority"`
}

// PollResponse summarizes a manual ingestion poll.
type PollResponse struct {
	Fetched  int  `json:"fetched"`
	Created  int  `json:"created"`
	Appended int  `json:"appended"`
	Failed   int  `json:"failed"`
	Skipped  bool `json:"skipped"`
}
