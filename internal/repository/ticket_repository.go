package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, number, org_id, catalog_item_id, category_id, catalog_category_id, ticket_type,
               title, description, priority, urgency, impact, sla_id, direction_id, department_id, section_id,
               assignee_agent_id, status, source, requester_email, metadata, created_at, updated_at`

// Create inserts the ticket. A taken number yields ErrConflict and a malformed or
// unknown related id yields ErrInvalidReference.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (number, org_id, catalog_item_id, category_id, catalog_category_id, ticket_type,
            title, description, priority, urgency, impact, sla_id, direction_id, department_id, section_id,
            assignee_agent_id, status, source, requester_email, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,''),NULLIF($11,''),$12,$13,$14,$15,$16,$17,$18,$19,$20)
        RETURNING id, created_at, updated_at`
	metadata := ticket.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	err := r.pool.QueryRow(ctx, query,
		ticket.Number,
		ticket.OrgID,
		ticket.CatalogItemID,
		ticket.CategoryID,
		ticket.CatalogCategoryID,
		ticket.Type,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		string(ticket.Urgency),
		string(ticket.Impact),
		ticket.SLAID,
		ticket.DirectionID,
		ticket.DepartmentID,
		ticket.SectionID,
		ticket.AssigneeID,
		ticket.Status,
		ticket.Source,
		ticket.RequesterEmail,
		metadata,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return translate(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE number=$1`, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var (
		ticket          domain.Ticket
		urgency, impact *string
	)
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.OrgID,
		&ticket.CatalogItemID,
		&ticket.CategoryID,
		&ticket.CatalogCategoryID,
		&ticket.Type,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&urgency,
		&impact,
		&ticket.SLAID,
		&ticket.DirectionID,
		&ticket.DepartmentID,
		&ticket.SectionID,
		&ticket.AssigneeID,
		&ticket.Status,
		&ticket.Source,
		&ticket.RequesterEmail,
		&ticket.Metadata,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	if urgency != nil {
		ticket.Urgency = domain.TicketPriority(*urgency)
	}
	if impact != nil {
		ticket.Impact = domain.TicketPriority(*impact)
	}
	return &ticket, nil
}
