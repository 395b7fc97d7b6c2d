package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/observability"
	"github.com/spec-kit/ticket-router/internal/repository"
)

// AssignmentRequest describes the scope and strategy for one ticket.
type AssignmentRequest struct {
	OrgID        string
	DirectionID  *string
	DepartmentID *string
	SectionID    *string
	Strategy     domain.AssignmentType
	// AgentID is the fixed agent used by the "agent" strategy.
	AgentID *string
}

// Assignment is the engine's verdict. Status is empty unless the strategy forces one.
type Assignment struct {
	AgentID *string
	Status  domain.TicketStatus
}

// AssignmentService picks agents for newly routed tickets.
type AssignmentService struct {
	agents  repository.AgentRepository
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	poolMu sync.Mutex
	pools  map[string]*sync.Mutex
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	AgentRepo repository.AgentRepository
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	Clock     func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AssignmentService{
		agents:  deps.AgentRepo,
		logger:  logger,
		metrics: deps.Metrics,
		now:     clock,
		pools:   make(map[string]*sync.Mutex),
	}
}

// Assign applies the strategy. An empty pool is not an error: the ticket simply stays unassigned.
func (s *AssignmentService) Assign(ctx context.Context, req AssignmentRequest) (Assignment, error) {
	var (
		result Assignment
		err    error
	)
	switch req.Strategy {
	case domain.AssignmentAgent:
		if req.AgentID != nil && *req.AgentID != "" {
			agentID := *req.AgentID
			result.AgentID = &agentID
		}
	case domain.AssignmentRoundRobin:
		result.AgentID, err = s.roundRobin(ctx, scopeOf(req))
	case domain.AssignmentLoadBalance:
		result.AgentID, err = s.loadBalance(ctx, scopeOf(req))
	case domain.AssignmentSection, domain.AssignmentDepartment:
		// left in the unit queue
	default:
		result.Status = domain.TicketStatusPendingAssignment
	}
	if err != nil {
		return Assignment{}, err
	}
	s.metrics.RecordAssignment(strategyLabel(req.Strategy), result.AgentID != nil)
	return result, nil
}

func strategyLabel(strategy domain.AssignmentType) domain.AssignmentType {
	switch strategy {
	case domain.AssignmentAgent, domain.AssignmentRoundRobin, domain.AssignmentLoadBalance,
		domain.AssignmentSection, domain.AssignmentDepartment:
		return strategy
	default:
		return domain.AssignmentManual
	}
}

func scopeOf(req AssignmentRequest) repository.AgentScope {
	scope := repository.AgentScope{OrgID: req.OrgID}
	if req.SectionID != nil {
		scope.SectionID = req.SectionID
	} else if req.DepartmentID != nil {
		scope.DepartmentID = req.DepartmentID
	}
	return scope
}

func (s *AssignmentService) roundRobin(ctx context.Context, scope repository.AgentScope) (*string, error) {
	if scope.Empty() {
		return nil, nil
	}
	if claimer, ok := s.agents.(repository.RoundRobinClaimer); ok {
		agent, err := claimer.ClaimLeastRecentlyAssigned(ctx, scope, s.now())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("claim round robin agent: %w", err)
		}
		return &agent.ID, nil
	}

	// Section and department pools of one org share agents, so they share a lock.
	lock := s.poolLock(scope.OrgID)
	lock.Lock()
	defer lock.Unlock()

	candidates, err := s.agents.ListEligibleAgents(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list eligible agents: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return assignedBefore(candidates[i], candidates[j])
	})
	picked := candidates[0]
	if err := s.agents.TouchLastAssigned(ctx, picked.ID, s.now()); err != nil {
		return nil, fmt.Errorf("touch last assigned: %w", err)
	}
	s.logger.Debug("round robin pick", zap.String("agent_id", picked.ID), zap.String("pool", scope.Key()))
	return &picked.ID, nil
}

// assignedBefore orders never-assigned agents first, then oldest stamp, then id.
func assignedBefore(a, b domain.Agent) bool {
	switch {
	case a.LastAssignedAt == nil && b.LastAssignedAt != nil:
		return true
	case a.LastAssignedAt != nil && b.LastAssignedAt == nil:
		return false
	case a.LastAssignedAt != nil && b.LastAssignedAt != nil && !a.LastAssignedAt.Equal(*b.LastAssignedAt):
		return a.LastAssignedAt.Before(*b.LastAssignedAt)
	default:
		return a.ID < b.ID
	}
}

func (s *AssignmentService) loadBalance(ctx context.Context, scope repository.AgentScope) (*string, error) {
	if scope.Empty() {
		return nil, nil
	}
	candidates, err := s.agents.ListEligibleAgents(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list eligible agents: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	bestIdx, bestCount := -1, 0
	for i, agent := range candidates {
		count, err := s.agents.CountOpenTickets(ctx, agent.ID, domain.OpenTicketStatuses)
		if err != nil {
			return nil, fmt.Errorf("count open tickets for %s: %w", agent.ID, err)
		}
		if bestIdx == -1 || count < bestCount {
			bestIdx, bestCount = i, count
		}
	}
	picked := candidates[bestIdx]
	s.logger.Debug("load balance pick",
		zap.String("agent_id", picked.ID),
		zap.Int("open_tickets", bestCount),
		zap.String("pool", scope.Key()))
	return &picked.ID, nil
}

func (s *AssignmentService) poolLock(key string) *sync.Mutex {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()
	lock, ok := s.pools[key]
	if !ok {
		lock = &sync.Mutex{}
		s.pools[key] = lock
	}
	return lock
}
