package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository/memory"
)

type brokenSLAs struct{}

func (brokenSLAs) FindActiveSLA(context.Context, string, domain.TicketPriority, *string) (*domain.SLA, error) {
	return nil, errors.New("db down")
}

func TestSLAResolverMatchesPriorityAndCategory(t *testing.T) {
	store := memory.NewStore()
	store.AddSLA(domain.SLA{ID: "generic-high", OrgID: "org", Priority: domain.TicketPriorityHigh, Active: true})
	store.AddSLA(domain.SLA{ID: "net-high", OrgID: "org", Priority: domain.TicketPriorityHigh, CategoryID: strPtr("net"), Active: true})
	resolver := NewSLAResolver(store)

	sla, err := resolver.Resolve(context.Background(), "org", domain.TicketPriorityHigh, nil)
	require.NoError(t, err)
	require.Equal(t, "generic-high", sla.ID)

	sla, err = resolver.Resolve(context.Background(), "org", domain.TicketPriorityHigh, strPtr("net"))
	require.NoError(t, err)
	require.Equal(t, "net-high", sla.ID)

	sla, err = resolver.Resolve(context.Background(), "org", domain.TicketPriorityLow, nil)
	require.NoError(t, err)
	require.Nil(t, sla)
}

func TestSLAResolverReturnsStorageErrors(t *testing.T) {
	_, err := NewSLAResolver(brokenSLAs{}).Resolve(context.Background(), "org", domain.TicketPriorityHigh, nil)
	require.ErrorContains(t, err, "db down")
}
