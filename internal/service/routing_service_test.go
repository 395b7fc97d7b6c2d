package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository"
	"github.com/spec-kit/ticket-router/internal/repository/memory"
)

func newRoutingFixture(store *memory.Store, catalog repository.CatalogRepository) *RoutingService {
	if catalog == nil {
		catalog = store
	}
	return NewRoutingService(RoutingDependencies{
		CatalogRepo: catalog,
		UnitRepo:    store,
		SLAResolver: NewSLAResolver(store),
		Assignment:  NewAssignmentService(AssignmentDependencies{AgentRepo: store}),
	})
}

func TestResolveCatalogItemAppliesDefaults(t *testing.T) {
	store := memory.NewStore()
	store.AddAgent(domain.Agent{ID: "agent-1", OrgID: "org", SectionID: strPtr("sec"), Active: true})
	store.AddSLA(domain.SLA{ID: "sla-cat", OrgID: "org", Priority: domain.TicketPriorityHigh, CategoryID: strPtr("cat"), Active: true})
	itemID := store.AddCatalogItem(domain.CatalogItem{
		OrgID:            "org",
		DepartmentID:     strPtr("dep"),
		SectionID:        strPtr("sec"),
		CategoryID:       strPtr("cat"),
		DefaultPriority:  domain.TicketPriorityHigh,
		RequiresApproval: true,
		AssignmentType:   domain.AssignmentRoundRobin,
		IsActive:         true,
	})

	decision := newRoutingFixture(store, nil).Resolve(context.Background(), RoutingInput{OrgID: "org", CatalogItemID: &itemID})

	require.Equal(t, domain.RoutingPathCatalogItem, decision.Path)
	require.Equal(t, domain.TicketPriorityHigh, decision.Priority)
	require.Equal(t, domain.TicketTypeServiceRequest, decision.Type)
	require.Equal(t, domain.TicketStatusOpen, decision.Status)
	require.Equal(t, "sla-cat", *decision.SLAID)
	require.Equal(t, "sec", *decision.SectionID)
	require.Equal(t, "cat", *decision.CategoryID)
	require.Equal(t, itemID, *decision.CatalogItemID)
	require.Nil(t, decision.CatalogCategoryID)
	require.Equal(t, "agent-1", *decision.AssigneeID)

	item, err := store.GetItemByID(context.Background(), itemID)
	require.NoError(t, err)
	require.EqualValues(t, 1, item.UsageCount)
}

func TestResolveCatalogItemPriorityOrder(t *testing.T) {
	store := memory.NewStore()
	itemID := store.AddCatalogItem(domain.CatalogItem{OrgID: "org", DefaultPriority: domain.TicketPriorityLow, SLAID: strPtr("fixed-sla"), AssignmentType: domain.AssignmentSection, IsActive: true})
	svc := newRoutingFixture(store, nil)

	explicit := svc.Resolve(context.Background(), RoutingInput{OrgID: "org", CatalogItemID: &itemID, Priority: domain.TicketPriorityCritical, Urgency: domain.TicketPriorityLow, Impact: domain.TicketPriorityLow})
	require.Equal(t, domain.TicketPriorityCritical, explicit.Priority)

	matrix := svc.Resolve(context.Background(), RoutingInput{OrgID: "org", CatalogItemID: &itemID, Urgency: domain.TicketPriorityHigh, Impact: domain.TicketPriorityMedium})
	require.Equal(t, domain.TicketPriorityHigh, matrix.Priority)
	require.Equal(t, "fixed-sla", *matrix.SLAID)

	fallback := svc.Resolve(context.Background(), RoutingInput{OrgID: "org", CatalogItemID: &itemID})
	require.Equal(t, domain.TicketPriorityLow, fallback.Priority)
	require.Equal(t, domain.TicketTypeIncident, fallback.Type)
	require.Nil(t, fallback.AssigneeID)
}

func TestResolveManualItemIsPendingAssignment(t *testing.T) {
	store := memory.NewStore()
	itemID := store.AddCatalogItem(domain.CatalogItem{OrgID: "org", AssignmentType: domain.AssignmentManual, IsActive: true})

	decision := newRoutingFixture(store, nil).Resolve(context.Background(), RoutingInput{OrgID: "org", CatalogItemID: &itemID})
	require.Equal(t, domain.TicketStatusPendingAssignment, decision.Status)
	require.Equal(t, domain.TicketPriorityMedium, decision.Priority)
}

func TestResolveCategoryAndCatalogCategory(t *testing.T) {
	store := memory.NewStore()
	catID := store.AddCategory(domain.Category{OrgID: "org", Name: "Network", DefaultDepartmentID: strPtr("net-dep")})
	store.AddSLA(domain.SLA{ID: "net-sla", OrgID: "org", Priority: domain.TicketPriorityMedium, CategoryID: &catID, Active: true})
	ccID := store.AddCatalogCategory(domain.CatalogCategory{OrgID: "org", DefaultDirectionID: strPtr("dir"), DefaultDepartmentID: strPtr("dep")})
	svc := newRoutingFixture(store, nil)

	byCategory := svc.Resolve(context.Background(), RoutingInput{OrgID: "org", CategoryID: &catID})
	require.Equal(t, domain.RoutingPathCategory, byCategory.Path)
	require.Equal(t, "net-dep", *byCategory.DepartmentID)
	require.Equal(t, "net-sla", *byCategory.SLAID)
	require.Equal(t, catID, *byCategory.CategoryID)

	byCatalogCategory := svc.Resolve(context.Background(), RoutingInput{OrgID: "org", CatalogCategoryID: &ccID})
	require.Equal(t, domain.RoutingPathCatalogCategory, byCatalogCategory.Path)
	require.Equal(t, "dir", *byCatalogCategory.DirectionID)
	require.Equal(t, "dep", *byCatalogCategory.DepartmentID)
	require.Nil(t, byCatalogCategory.SLAID)
	require.Equal(t, domain.TicketStatusOpen, byCatalogCategory.Status)
}

func TestResolvePlacementKeepsUnitAndUsesGenericSLA(t *testing.T) {
	store := memory.NewStore()
	store.AddSLA(domain.SLA{ID: "generic", OrgID: "org", Priority: domain.TicketPriorityMedium, Active: true})

	decision := newRoutingFixture(store, nil).Resolve(context.Background(), RoutingInput{OrgID: "org", SectionID: strPtr("sec")})
	require.Equal(t, domain.RoutingPathPlacement, decision.Path)
	require.Equal(t, "sec", *decision.SectionID)
	require.Nil(t, decision.DepartmentID)
	require.Nil(t, decision.DirectionID)
	require.Equal(t, "generic", *decision.SLAID)
}

func TestResolveTriageWithAndWithoutDepartment(t *testing.T) {
	store := memory.NewStore()
	svc := newRoutingFixture(store, nil)

	decision := svc.Resolve(context.Background(), RoutingInput{OrgID: "org"})
	require.Equal(t, domain.RoutingPathTriage, decision.Path)
	require.Equal(t, domain.TicketStatusPendingCategorization, decision.Status)
	require.Equal(t, domain.TicketPriorityMedium, decision.Priority)
	require.Nil(t, decision.DepartmentID)

	triageID := store.AddUnit(domain.OrgUnit{OrgID: "org", Kind: domain.UnitKindDepartment, Name: "Triage", IsTriage: true, IsActive: true, CreatedAt: time.Now()})
	decision = svc.Resolve(context.Background(), RoutingInput{OrgID: "org"})
	require.Equal(t, triageID, *decision.DepartmentID)
}

type failingCatalog struct {
	*memory.Store
	panic bool
}

func (f failingCatalog) GetItemByID(context.Context, string) (*domain.CatalogItem, error) {
	if f.panic {
		panic("catalog exploded")
	}
	return nil, errors.New("connection reset")
}

func TestResolveCatalogFailureFallsBackToTriage(t *testing.T) {
	for _, shouldPanic := range []bool{false, true} {
		store := memory.NewStore()
		triageID := store.AddUnit(domain.OrgUnit{OrgID: "org", Kind: domain.UnitKindDepartment, Name: "Triage", IsTriage: true, IsActive: true})
		svc := newRoutingFixture(store, failingCatalog{Store: store, panic: shouldPanic})

		decision := svc.Resolve(context.Background(), RoutingInput{OrgID: "org", CatalogItemID: strPtr("item")})
		require.Equal(t, domain.RoutingPathTriage, decision.Path)
		require.Equal(t, domain.TicketStatusPendingCategorization, decision.Status)
		require.Equal(t, triageID, *decision.DepartmentID)
		require.NotEmpty(t, decision.FallbackReason)
	}
}

func TestResolveMissingCategoryFallsBackToTriage(t *testing.T) {
	store := memory.NewStore()
	decision := newRoutingFixture(store, nil).Resolve(context.Background(), RoutingInput{OrgID: "org", CategoryID: strPtr("missing"), Priority: domain.TicketPriorityHigh})
	require.Equal(t, domain.RoutingPathTriage, decision.Path)
	require.Equal(t, domain.TicketPriorityHigh, decision.Priority)
	require.Equal(t, domain.TicketTypeIncident, decision.Type)
}
