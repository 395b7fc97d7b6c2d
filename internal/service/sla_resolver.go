package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository"
)

// SLAResolver finds the SLA governing a (priority, category) pair.
type SLAResolver struct {
	slas repository.SLARepository
}

// NewSLAResolver builds the resolver.
func NewSLAResolver(slas repository.SLARepository) *SLAResolver {
	return &SLAResolver{slas: slas}
}

// Resolve returns the active SLA or nil when none matches. A nil categoryID matches
// SLAs without a category constraint. Storage failures are returned.
func (r *SLAResolver) Resolve(ctx context.Context, orgID string, priority domain.TicketPriority, categoryID *string) (*domain.SLA, error) {
	if r == nil || r.slas == nil {
		return nil, nil
	}
	sla, err := r.slas.FindActiveSLA(ctx, orgID, priority, categoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active sla: %w", err)
	}
	return sla, nil
}
