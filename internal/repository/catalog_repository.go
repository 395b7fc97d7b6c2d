package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// CatalogRepository reads catalog items, categories and catalog categories.
type CatalogRepository interface {
	GetItemByID(ctx context.Context, id string) (*domain.CatalogItem, error)
	IncrementUsage(ctx context.Context, id string) error
	GetCategoryByID(ctx context.Context, id string) (*domain.Category, error)
	GetCatalogCategoryByID(ctx context.Context, id string) (*domain.CatalogCategory, error)
}

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository builds the repository.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

func (r *catalogRepository) GetItemByID(ctx context.Context, id string) (*domain.CatalogItem, error) {
	const query = `
        SELECT id, org_id, name, direction_id, department_id, section_id, category_id, sla_id,
               default_priority, requires_approval, assignment_type, assigned_agent_id, usage_count,
               is_active, created_at, updated_at
        FROM catalog_items WHERE id=$1`
	var item domain.CatalogItem
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.OrgID,
		&item.Name,
		&item.DirectionID,
		&item.DepartmentID,
		&item.SectionID,
		&item.CategoryID,
		&item.SLAID,
		&item.DefaultPriority,
		&item.RequiresApproval,
		&item.AssignmentType,
		&item.AssignedAgentID,
		&item.UsageCount,
		&item.IsActive,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *catalogRepository) IncrementUsage(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE catalog_items SET usage_count = usage_count + 1 WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepository) GetCategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `SELECT id, org_id, name, default_department_id FROM categories WHERE id=$1`
	var category domain.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.OrgID,
		&category.Name,
		&category.DefaultDepartmentID,
	); err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (r *catalogRepository) GetCatalogCategoryByID(ctx context.Context, id string) (*domain.CatalogCategory, error) {
	const query = `
        SELECT id, org_id, name, default_direction_id, default_department_id
        FROM catalog_categories WHERE id=$1`
	var category domain.CatalogCategory
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.OrgID,
		&category.Name,
		&category.DefaultDirectionID,
		&category.DefaultDepartmentID,
	); err != nil {
		return nil, translate(err)
	}
	return &category, nil
}
