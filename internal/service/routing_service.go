package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/observability"
	"github.com/spec-kit/ticket-router/internal/priority"
	"github.com/spec-kit/ticket-router/internal/repository"
)

// RoutingInput carries what the caller knows about a new ticket.
type RoutingInput struct {
	OrgID             string
	CatalogItemID     *string
	CategoryID        *string
	CatalogCategoryID *string
	Priority          domain.TicketPriority
	Urgency           domain.TicketPriority
	Impact            domain.TicketPriority
	DirectionID       *string
	DepartmentID      *string
	SectionID         *string
}

func (in RoutingInput) hasPlacement() bool {
	return in.DirectionID != nil || in.DepartmentID != nil || in.SectionID != nil
}

// RoutingService decides placement, priority, SLA and assignee for new tickets.
type RoutingService struct {
	catalog    repository.CatalogRepository
	units      repository.OrgUnitRepository
	slas       *SLAResolver
	assignment *AssignmentService
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// RoutingDependencies bundles collaborators.
type RoutingDependencies struct {
	CatalogRepo repository.CatalogRepository
	UnitRepo    repository.OrgUnitRepository
	SLAResolver *SLAResolver
	Assignment  *AssignmentService
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewRoutingService creates the service.
func NewRoutingService(deps RoutingDependencies) *RoutingService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoutingService{
		catalog:    deps.CatalogRepo,
		units:      deps.UnitRepo,
		slas:       deps.SLAResolver,
		assignment: deps.Assignment,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// Resolve runs the routing cascade. It never fails: any error in the catalog item,
// category, catalog category or placement step sends the ticket to triage.
func (s *RoutingService) Resolve(ctx context.Context, in RoutingInput) domain.RoutingDecision {
	var (
		decision domain.RoutingDecision
		err      error
	)
	switch {
	case present(in.CatalogItemID):
		decision, err = s.guard(ctx, in, s.fromCatalogItem)
	case present(in.CategoryID):
		decision, err = s.guard(ctx, in, s.fromCategory)
	case present(in.CatalogCategoryID):
		decision, err = s.guard(ctx, in, s.fromCatalogCategory)
	case in.hasPlacement():
		decision, err = s.guard(ctx, in, s.fromPlacement)
	default:
		decision = s.triage(ctx, in, "")
	}
	if err != nil {
		s.logger.Warn("routing fell back to triage", zap.String("org_id", in.OrgID), zap.Error(err))
		decision = s.triage(ctx, in, err.Error())
	}
	finalize(&decision)
	s.metrics.RecordRouting(decision.Path)
	return decision
}

// Fallback routes straight to triage. Callers use it when a resolved decision
// could not be stored, so the ticket is still taken in.
func (s *RoutingService) Fallback(ctx context.Context, in RoutingInput, reason string) domain.RoutingDecision {
	decision := s.triage(ctx, in, reason)
	finalize(&decision)
	s.metrics.RecordRouting(decision.Path)
	return decision
}

type routingStep func(ctx context.Context, in RoutingInput) (domain.RoutingDecision, error)

func (s *RoutingService) guard(ctx context.Context, in RoutingInput, step routingStep) (decision domain.RoutingDecision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("routing panic: %v", r)
		}
	}()
	return step(ctx, in)
}

func (s *RoutingService) fromCatalogItem(ctx context.Context, in RoutingInput) (domain.RoutingDecision, error) {
	item, err := s.catalog.GetItemByID(ctx, *in.CatalogItemID)
	if err != nil {
		return domain.RoutingDecision{}, fmt.Errorf("load catalog item %s: %w", *in.CatalogItemID, err)
	}
	if !item.IsActive {
		return domain.RoutingDecision{}, fmt.Errorf("catalog item %s is inactive", item.ID)
	}

	decision := domain.RoutingDecision{
		Path:          domain.RoutingPathCatalogItem,
		Priority:      explicitPriority(in, item.DefaultPriority),
		Type:          domain.TicketTypeIncident,
		Status:        domain.TicketStatusOpen,
		CatalogItemID: &item.ID,
		CategoryID:    item.CategoryID,
		DirectionID:   item.DirectionID,
		DepartmentID:  item.DepartmentID,
		SectionID:     item.SectionID,
	}
	if item.RequiresApproval {
		decision.Type = domain.TicketTypeServiceRequest
	}

	if present(item.SLAID) {
		decision.SLAID = item.SLAID
	} else if err := s.applySLA(ctx, in.OrgID, &decision, item.CategoryID); err != nil {
		return domain.RoutingDecision{}, err
	}

	if s.assignment != nil {
		assignment, err := s.assignment.Assign(ctx, AssignmentRequest{
			OrgID:        in.OrgID,
			DirectionID:  item.DirectionID,
			DepartmentID: item.DepartmentID,
			SectionID:    item.SectionID,
			Strategy:     item.AssignmentType,
			AgentID:      item.AssignedAgentID,
		})
		if err != nil {
			return domain.RoutingDecision{}, fmt.Errorf("assign catalog item ticket: %w", err)
		}
		decision.AssigneeID = assignment.AgentID
		if assignment.Status != "" {
			decision.Status = assignment.Status
		}
	}

	if err := s.catalog.IncrementUsage(ctx, item.ID); err != nil {
		s.logger.Warn("failed to increment catalog item usage", zap.String("catalog_item_id", item.ID), zap.Error(err))
	}
	return decision, nil
}

func (s *RoutingService) fromCategory(ctx context.Context, in RoutingInput) (domain.RoutingDecision, error) {
	category, err := s.catalog.GetCategoryByID(ctx, *in.CategoryID)
	if err != nil {
		return domain.RoutingDecision{}, fmt.Errorf("load category %s: %w", *in.CategoryID, err)
	}
	decision := domain.RoutingDecision{
		Path:         domain.RoutingPathCategory,
		Priority:     explicitPriority(in, ""),
		Status:       domain.TicketStatusOpen,
		DirectionID:  in.DirectionID,
		DepartmentID: in.DepartmentID,
		SectionID:    in.SectionID,
		CategoryID:   &category.ID,
	}
	if present(category.DefaultDepartmentID) {
		decision.DirectionID, decision.SectionID = nil, nil
		decision.DepartmentID = category.DefaultDepartmentID
	}
	if err := s.applySLA(ctx, in.OrgID, &decision, &category.ID); err != nil {
		return domain.RoutingDecision{}, err
	}
	return decision, nil
}

func (s *RoutingService) fromCatalogCategory(ctx context.Context, in RoutingInput) (domain.RoutingDecision, error) {
	category, err := s.catalog.GetCatalogCategoryByID(ctx, *in.CatalogCategoryID)
	if err != nil {
		return domain.RoutingDecision{}, fmt.Errorf("load catalog category %s: %w", *in.CatalogCategoryID, err)
	}
	return domain.RoutingDecision{
		Path:              domain.RoutingPathCatalogCategory,
		Priority:          explicitPriority(in, ""),
		Status:            domain.TicketStatusOpen,
		CatalogCategoryID: &category.ID,
		DirectionID:       category.DefaultDirectionID,
		DepartmentID:      category.DefaultDepartmentID,
	}, nil
}

func (s *RoutingService) fromPlacement(ctx context.Context, in RoutingInput) (domain.RoutingDecision, error) {
	decision := domain.RoutingDecision{
		Path:         domain.RoutingPathPlacement,
		Priority:     explicitPriority(in, ""),
		Status:       domain.TicketStatusOpen,
		DirectionID:  in.DirectionID,
		DepartmentID: in.DepartmentID,
		SectionID:    in.SectionID,
	}
	if err := s.applySLA(ctx, in.OrgID, &decision, nil); err != nil {
		return domain.RoutingDecision{}, err
	}
	return decision, nil
}

func (s *RoutingService) triage(ctx context.Context, in RoutingInput, reason string) domain.RoutingDecision {
	decision := domain.RoutingDecision{
		Path:           domain.RoutingPathTriage,
		Priority:       explicitPriority(in, ""),
		Status:         domain.TicketStatusPendingCategorization,
		FallbackReason: reason,
	}
	if s.units == nil {
		return decision
	}
	dept, err := s.units.FindTriageDepartment(ctx, in.OrgID)
	switch {
	case err == nil:
		decision.DepartmentID = &dept.ID
	case errors.Is(err, repository.ErrNotFound):
	default:
		s.logger.Warn("failed to look up triage department", zap.String("org_id", in.OrgID), zap.Error(err))
	}
	return decision
}

func (s *RoutingService) applySLA(ctx context.Context, orgID string, decision *domain.RoutingDecision, categoryID *string) error {
	sla, err := s.slas.Resolve(ctx, orgID, decision.Priority, categoryID)
	if err != nil {
		return err
	}
	if sla != nil {
		decision.SLAID = &sla.ID
	}
	return nil
}

// explicitPriority picks the caller's priority, then the urgency/impact matrix, then fallback.
func explicitPriority(in RoutingInput, fallback domain.TicketPriority) domain.TicketPriority {
	if level := priority.Parse(string(in.Priority)); level != "" {
		return level
	}
	if in.Urgency != "" && in.Impact != "" {
		return priority.Calculate(in.Urgency, in.Impact)
	}
	if level := priority.Parse(string(fallback)); level != "" {
		return level
	}
	return domain.TicketPriorityMedium
}

func finalize(d *domain.RoutingDecision) {
	if d.Priority == "" {
		d.Priority = domain.TicketPriorityMedium
	}
	if d.Type == "" {
		d.Type = domain.TicketTypeIncident
	}
	if d.Status == "" {
		d.Status = domain.TicketStatusOpen
	}
}

func present(v *string) bool {
	return v != nil && *v != ""
}
