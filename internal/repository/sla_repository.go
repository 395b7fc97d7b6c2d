package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// SLARepository finds active SLAs.
type SLARepository interface {
	// FindActiveSLA matches (priority, categoryID). A nil categoryID matches only SLAs without a category.
	FindActiveSLA(ctx context.Context, orgID string, priority domain.TicketPriority, categoryID *string) (*domain.SLA, error)
}

type slaRepository struct {
	pool *pgxpool.Pool
}

// NewSLARepository builds the repository.
func NewSLARepository(pool *pgxpool.Pool) SLARepository {
	return &slaRepository{pool: pool}
}

func (r *slaRepository) FindActiveSLA(ctx context.Context, orgID string, priority domain.TicketPriority, categoryID *string) (*domain.SLA, error) {
	const query = `
        SELECT id, org_id, name, priority, category_id, response_minutes, resolution_minutes, is_active, created_at
        FROM slas
        WHERE org_id=$1 AND priority=$2 AND is_active = TRUE
          AND (($3::uuid IS NULL AND category_id IS NULL) OR category_id = $3::uuid)
        ORDER BY created_at DESC
        LIMIT 1`
	var sla domain.SLA
	if err := r.pool.QueryRow(ctx, query, orgID, priority, categoryID).Scan(
		&sla.ID,
		&sla.OrgID,
		&sla.Name,
		&sla.Priority,
		&sla.CategoryID,
		&sla.ResponseMinutes,
		&sla.ResolutionMinutes,
		&sla.Active,
		&sla.CreatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &sla, nil
}
