package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository/memory"
)

type countingUnits struct {
	*memory.Store
	lookups int
}

func (c *countingUnits) FindUnitsByEmail(ctx context.Context, orgID string, kind domain.UnitKind, email string) ([]domain.OrgUnit, error) {
	c.lookups++
	return c.Store.FindUnitsByEmail(ctx, orgID, kind, email)
}

func TestValidateUniquenessReportsFirstConflict(t *testing.T) {
	store := memory.NewStore()
	deptID := store.AddUnit(domain.OrgUnit{ID: "dep-1", OrgID: "org", Kind: domain.UnitKindDepartment, Name: "IT Support", Email: strPtr("help@acme.test")})
	store.AddUnit(domain.OrgUnit{ID: "sec-1", OrgID: "org", Kind: domain.UnitKindSection, Name: "Desk", Email: strPtr("help@acme.test")})
	directory := NewOrgEmailDirectory(store)

	result, err := directory.ValidateUniqueness(context.Background(), "  HELP@acme.test ", "org", nil)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, domain.UnitKindDepartment, result.ConflictKind)
	require.Equal(t, deptID, result.ConflictID)
	require.Contains(t, result.Reason, "Department")
	require.Contains(t, result.Reason, "IT Support")

	result, err = directory.ValidateUniqueness(context.Background(), "help@acme.test", "other-org", nil)
	require.NoError(t, err)
	require.True(t, result.Valid)
}

func TestValidateUniquenessExcludesSelf(t *testing.T) {
	store := memory.NewStore()
	store.AddUnit(domain.OrgUnit{ID: "sec-1", OrgID: "org", Kind: domain.UnitKindSection, Name: "Desk", Email: strPtr("desk@acme.test")})
	directory := NewOrgEmailDirectory(store)

	result, err := directory.ValidateUniqueness(context.Background(), "desk@acme.test", "org", &domain.UnitRef{Kind: domain.UnitKindSection, ID: "sec-1"})
	require.NoError(t, err)
	require.True(t, result.Valid)

	result, err = directory.ValidateUniqueness(context.Background(), "desk@acme.test", "org", &domain.UnitRef{Kind: domain.UnitKindDepartment, ID: "sec-1"})
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, domain.UnitKindSection, result.ConflictKind)
}

func TestEmptyEmailSkipsStorage(t *testing.T) {
	units := &countingUnits{Store: memory.NewStore()}
	directory := NewOrgEmailDirectory(units)

	result, err := directory.ValidateUniqueness(context.Background(), "   ", "org", nil)
	require.NoError(t, err)
	require.True(t, result.Valid)

	resolved, err := directory.Resolve(context.Background(), "", "org")
	require.NoError(t, err)
	require.Nil(t, resolved)
	require.Zero(t, units.lookups)
}

func TestResolvePrefersMostSpecificUnit(t *testing.T) {
	store := memory.NewStore()
	store.AddUnit(domain.OrgUnit{ID: "dir-1", OrgID: "org", Kind: domain.UnitKindDirection, Name: "Ops", Email: strPtr("shared@acme.test")})
	store.AddUnit(domain.OrgUnit{ID: "dep-1", OrgID: "org", Kind: domain.UnitKindDepartment, Name: "IT", Email: strPtr("shared@acme.test")})
	store.AddUnit(domain.OrgUnit{ID: "sec-1", OrgID: "org", Kind: domain.UnitKindSection, Name: "Desk", Email: strPtr("shared@acme.test")})
	store.AddUnit(domain.OrgUnit{ID: "dir-2", OrgID: "org", Kind: domain.UnitKindDirection, Name: "Finance", Email: strPtr("finance@acme.test")})
	directory := NewOrgEmailDirectory(store)

	resolved, err := directory.Resolve(context.Background(), "Shared@ACME.test", "org")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	require.Equal(t, domain.UnitKindSection, resolved.Kind)
	require.Equal(t, "sec-1", resolved.Unit.ID)

	resolved, err = directory.Resolve(context.Background(), "finance@acme.test", "org")
	require.NoError(t, err)
	require.Equal(t, domain.UnitKindDirection, resolved.Kind)

	resolved, err = directory.Resolve(context.Background(), "nobody@acme.test", "org")
	require.NoError(t, err)
	require.Nil(t, resolved)
}

func TestValidateEmailSyntax(t *testing.T) {
	require.NoError(t, ValidateEmail(""))
	require.NoError(t, ValidateEmail(" Desk@Acme.test "))
	require.Error(t, ValidateEmail("not-an-address"))
	require.Error(t, ValidateEmail("Desk <desk@acme.test>"))
}

func TestStoredEmailIsMatchedTrimmedAndCaseFolded(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.AddUnit(domain.OrgUnit{ID: "sec-1", OrgID: "org", Kind: domain.UnitKindSection, Name: "Desk", Email: strPtr("  Desk@ACME.test ")})
	directory := NewOrgEmailDirectory(store)

	for _, email := range []string{"desk@acme.test", " DESK@acme.TEST "} {
		resolved, err := directory.Resolve(ctx, email, "org")
		require.NoError(t, err, email)
		require.NotNil(t, resolved, email)
		require.Equal(t, "sec-1", resolved.Unit.ID)
	}

	result, err := directory.ValidateUniqueness(ctx, "DESK@acme.test", "org", nil)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, "sec-1", result.ConflictID)
	require.Contains(t, result.Reason, `"desk@acme.test"`)

	result, err = directory.ValidateUniqueness(ctx, "desk@acme.test", "org", &domain.UnitRef{Kind: domain.UnitKindSection, ID: "sec-1"})
	require.NoError(t, err)
	require.True(t, result.Valid)
}
