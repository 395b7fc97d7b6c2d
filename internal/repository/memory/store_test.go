package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository"
)

func strPtr(v string) *string { return &v }

func TestFindUnitsByEmailScopesByOrgAndKind(t *testing.T) {
	store := NewStore()
	store.AddUnit(domain.OrgUnit{OrgID: "org-1", Kind: domain.UnitKindSection, Name: "Desk", Email: strPtr(" Desk@Example.com ")})
	store.AddUnit(domain.OrgUnit{OrgID: "org-2", Kind: domain.UnitKindSection, Name: "Other", Email: strPtr("desk@example.com")})
	store.AddUnit(domain.OrgUnit{OrgID: "org-1", Kind: domain.UnitKindDepartment, Name: "IT", Email: strPtr("it@example.com")})

	units, err := store.FindUnitsByEmail(context.Background(), "org-1", domain.UnitKindSection, "desk@example.com")
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, "Desk", units[0].Name)

	units, err = store.FindUnitsByEmail(context.Background(), "org-1", domain.UnitKindDirection, "desk@example.com")
	require.NoError(t, err)
	require.Empty(t, units)
}

func TestFindTriageDepartment(t *testing.T) {
	store := NewStore()
	_, err := store.FindTriageDepartment(context.Background(), "org-1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	id := store.AddUnit(domain.OrgUnit{OrgID: "org-1", Kind: domain.UnitKindDepartment, Name: "Triage", IsActive: true})
	dept, err := store.FindTriageDepartment(context.Background(), "org-1")
	require.NoError(t, err)
	require.Equal(t, id, dept.ID)
}

func TestFindActiveSLAPrefersNewest(t *testing.T) {
	store := NewStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.AddSLA(domain.SLA{ID: "old", OrgID: "o", Priority: domain.TicketPriorityHigh, Active: true, CreatedAt: base})
	store.AddSLA(domain.SLA{ID: "new", OrgID: "o", Priority: domain.TicketPriorityHigh, Active: true, CreatedAt: base.Add(time.Hour)})
	store.AddSLA(domain.SLA{ID: "inactive", OrgID: "o", Priority: domain.TicketPriorityHigh, CreatedAt: base.Add(2 * time.Hour)})
	store.AddSLA(domain.SLA{ID: "cat", OrgID: "o", Priority: domain.TicketPriorityHigh, Active: true, CategoryID: strPtr("c1"), CreatedAt: base.Add(3 * time.Hour)})

	sla, err := store.FindActiveSLA(context.Background(), "o", domain.TicketPriorityHigh, nil)
	require.NoError(t, err)
	require.Equal(t, "new", sla.ID)

	sla, err = store.FindActiveSLA(context.Background(), "o", domain.TicketPriorityHigh, strPtr("c1"))
	require.NoError(t, err)
	require.Equal(t, "cat", sla.ID)
}

func TestCountOpenTicketsUsesStatusSet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	agent := strPtr("a1")
	for _, status := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusPending, domain.TicketStatusClosed} {
		require.NoError(t, store.Create(ctx, &domain.Ticket{AssigneeID: agent, Status: status}))
	}
	count, err := store.CountOpenTickets(ctx, "a1", domain.OpenTicketStatuses)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestCommentsRequireExistingTicket(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	err := store.Comments().Create(ctx, &domain.TicketComment{TicketID: "missing"})
	require.ErrorIs(t, err, repository.ErrNotFound)

	ticket := &domain.Ticket{Number: "TCK-00000001"}
	require.NoError(t, store.Create(ctx, ticket))
	require.NoError(t, store.Comments().Create(ctx, &domain.TicketComment{TicketID: ticket.ID, Body: "hi"}))
	comments, err := store.Comments().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	found, err := store.GetByNumber(ctx, "TCK-00000001")
	require.NoError(t, err)
	require.Equal(t, ticket.ID, found.ID)
}

func TestCreateRejectsTakenNumber(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	first := &domain.Ticket{Number: "TCK-AAAAAAAA", Title: "first"}
	require.NoError(t, store.Create(ctx, first))

	second := &domain.Ticket{Number: "TCK-AAAAAAAA", Title: "second"}
	require.ErrorIs(t, store.Create(ctx, second), repository.ErrConflict)
	require.Empty(t, second.ID)

	found, err := store.GetByNumber(ctx, "TCK-AAAAAAAA")
	require.NoError(t, err)
	require.Equal(t, first.ID, found.ID)
	require.Equal(t, "first", found.Title)
	require.Len(t, store.Tickets(), 1)
}
