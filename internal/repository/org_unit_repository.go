package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// OrgUnitRepository looks up directions, departments and sections.
type OrgUnitRepository interface {
	// FindUnitsByEmail returns every unit of kind whose normalized email equals email.
	// email must already be trimmed and lower-cased.
	FindUnitsByEmail(ctx context.Context, orgID string, kind domain.UnitKind, email string) ([]domain.OrgUnit, error)
	FindTriageDepartment(ctx context.Context, orgID string) (*domain.OrgUnit, error)
}

type orgUnitRepository struct {
	pool *pgxpool.Pool
}

// NewOrgUnitRepository builds the repository.
func NewOrgUnitRepository(pool *pgxpool.Pool) OrgUnitRepository {
	return &orgUnitRepository{pool: pool}
}

// unitTables maps each kind to its table and parent column.
var unitTables = map[domain.UnitKind]struct {
	table  string
	parent string
}{
	domain.UnitKindDirection:  {table: "directions", parent: "NULL::uuid"},
	domain.UnitKindDepartment: {table: "departments", parent: "direction_id"},
	domain.UnitKindSection:    {table: "sections", parent: "department_id"},
}

func (r *orgUnitRepository) FindUnitsByEmail(ctx context.Context, orgID string, kind domain.UnitKind, email string) ([]domain.OrgUnit, error) {
	meta, ok := unitTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown unit kind %q", kind)
	}
	triage := "FALSE"
	if kind == domain.UnitKindDepartment {
		triage = "is_triage"
	}
	query := fmt.Sprintf(`
        SELECT id, org_id, name, email, %s, %s, is_active, created_at, updated_at
        FROM %s
        WHERE org_id=$1 AND email IS NOT NULL AND LOWER(TRIM(email))=$2
        ORDER BY created_at ASC`, meta.parent, triage, meta.table)

	rows, err := r.pool.Query(ctx, query, orgID, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OrgUnit
	for rows.Next() {
		unit := domain.OrgUnit{Kind: kind}
		if err := rows.Scan(
			&unit.ID,
			&unit.OrgID,
			&unit.Name,
			&unit.Email,
			&unit.ParentID,
			&unit.IsTriage,
			&unit.IsActive,
			&unit.CreatedAt,
			&unit.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, unit)
	}
	return result, rows.Err()
}

func (r *orgUnitRepository) FindTriageDepartment(ctx context.Context, orgID string) (*domain.OrgUnit, error) {
	const query = `
        SELECT id, org_id, name, email, direction_id, is_triage, is_active, created_at, updated_at
        FROM departments
        WHERE org_id=$1 AND is_active = TRUE AND (is_triage = TRUE OR LOWER(name) = 'triage')
        ORDER BY is_triage DESC, created_at ASC
        LIMIT 1`
	unit := domain.OrgUnit{Kind: domain.UnitKindDepartment}
	if err := r.pool.QueryRow(ctx, query, orgID).Scan(
		&unit.ID,
		&unit.OrgID,
		&unit.Name,
		&unit.Email,
		&unit.ParentID,
		&unit.IsTriage,
		&unit.IsActive,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &unit, nil
}
