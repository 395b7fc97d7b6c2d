package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// AgentScope narrows the agent pool considered for assignment.
// SectionID takes precedence over DepartmentID.
type AgentScope struct {
	OrgID        string
	SectionID    *string
	DepartmentID *string
}

// Key identifies the pool for serialization purposes.
func (s AgentScope) Key() string {
	switch {
	case s.SectionID != nil:
		return s.OrgID + "/section/" + *s.SectionID
	case s.DepartmentID != nil:
		return s.OrgID + "/department/" + *s.DepartmentID
	default:
		return s.OrgID + "/none"
	}
}

// Empty reports whether the scope names no section or department.
func (s AgentScope) Empty() bool {
	return s.SectionID == nil && s.DepartmentID == nil
}

// AgentRepository handles agent lookups used by the assignment engine.
type AgentRepository interface {
	ListEligibleAgents(ctx context.Context, scope AgentScope) ([]domain.Agent, error)
	CountOpenTickets(ctx context.Context, agentID string, statuses []domain.TicketStatus) (int, error)
	TouchLastAssigned(ctx context.Context, agentID string, at time.Time) error
}

// RoundRobinClaimer picks the least recently assigned agent of a pool and stamps it in one atomic step.
type RoundRobinClaimer interface {
	ClaimLeastRecentlyAssigned(ctx context.Context, scope AgentScope, at time.Time) (*domain.Agent, error)
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, org_id, name, email, direction_id, department_id, section_id, active_flag,
               last_assigned_at, created_at, updated_at`

func scopeClause(scope AgentScope, args []any) (string, []any) {
	args = append(args, scope.OrgID)
	clauses := []string{fmt.Sprintf("org_id=$%d", len(args)), "active_flag=TRUE"}
	switch {
	case scope.SectionID != nil:
		args = append(args, *scope.SectionID)
		clauses = append(clauses, fmt.Sprintf("section_id=$%d", len(args)))
	case scope.DepartmentID != nil:
		args = append(args, *scope.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	default:
		clauses = append(clauses, "FALSE")
	}
	return strings.Join(clauses, " AND "), args
}

func (r *agentRepository) ListEligibleAgents(ctx context.Context, scope AgentScope) ([]domain.Agent, error) {
	where, args := scopeClause(scope, nil)
	query := `SELECT ` + agentColumns + ` FROM agents WHERE ` + where +
		` ORDER BY last_assigned_at ASC NULLS FIRST, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		var agent domain.Agent
		if err := rows.Scan(
			&agent.ID,
			&agent.OrgID,
			&agent.Name,
			&agent.Email,
			&agent.DirectionID,
			&agent.DepartmentID,
			&agent.SectionID,
			&agent.Active,
			&agent.LastAssignedAt,
			&agent.CreatedAt,
			&agent.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, agent)
	}
	return result, rows.Err()
}

func (r *agentRepository) CountOpenTickets(ctx context.Context, agentID string, statuses []domain.TicketStatus) (int, error) {
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	const query = `SELECT COUNT(*) FROM tickets WHERE assignee_agent_id=$1 AND status = ANY($2)`
	var count int
	if err := r.pool.QueryRow(ctx, query, agentID, values).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *agentRepository) TouchLastAssigned(ctx context.Context, agentID string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE agents SET last_assigned_at=$1, updated_at=NOW() WHERE id=$2`, at, agentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimLeastRecentlyAssigned runs pick and stamp as a single statement. Concurrent callers
// skip the row another transaction has locked and move on to the next oldest agent.
func (r *agentRepository) ClaimLeastRecentlyAssigned(ctx context.Context, scope AgentScope, at time.Time) (*domain.Agent, error) {
	where, args := scopeClause(scope, []any{at})
	query := `
        UPDATE agents SET last_assigned_at=$1, updated_at=NOW()
        WHERE id = (
            SELECT id FROM agents WHERE ` + where + `
            ORDER BY last_assigned_at ASC NULLS FIRST, id ASC
            LIMIT 1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING ` + agentColumns

	var agent domain.Agent
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&agent.ID,
		&agent.OrgID,
		&agent.Name,
		&agent.Email,
		&agent.DirectionID,
		&agent.DepartmentID,
		&agent.SectionID,
		&agent.Active,
		&agent.LastAssignedAt,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &agent, nil
}
