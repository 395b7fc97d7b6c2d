package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// Write-time checks run the most general kind first; resolution runs the most specific first.
var (
	uniquenessOrder = []domain.UnitKind{domain.UnitKindDirection, domain.UnitKindDepartment, domain.UnitKindSection}
	resolveOrder    = []domain.UnitKind{domain.UnitKindSection, domain.UnitKindDepartment, domain.UnitKindDirection}
)

// UniquenessResult reports whether an email may be attached to a unit.
type UniquenessResult struct {
	Valid        bool
	Reason       string
	ConflictKind domain.UnitKind
	ConflictID   string
}

// ResolvedUnit is the single unit an inbound address belongs to.
type ResolvedUnit struct {
	Kind domain.UnitKind
	Unit domain.OrgUnit
}

// OrgEmailDirectory maps email addresses to organizational units.
type OrgEmailDirectory struct {
	units repository.OrgUnitRepository
}

// NewOrgEmailDirectory builds the directory.
func NewOrgEmailDirectory(units repository.OrgUnitRepository) *OrgEmailDirectory {
	return &OrgEmailDirectory{units: units}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address syntax. An empty address is valid and means "no email".
func ValidateEmail(email string) error {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return apperrors.NewValidationError("invalid email address", map[string]any{"email": email})
	}
	return nil
}

// ValidateUniqueness checks that no other unit of any kind in orgID already uses email.
// Kinds are checked Direction, Department, Section and the first conflict wins.
// exclude names the unit being updated so re-saving its own email stays valid.
func (d *OrgEmailDirectory) ValidateUniqueness(ctx context.Context, email, orgID string, exclude *domain.UnitRef) (UniquenessResult, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return UniquenessResult{Valid: true}, nil
	}
	for _, kind := range uniquenessOrder {
		units, err := d.units.FindUnitsByEmail(ctx, orgID, kind, normalized)
		if err != nil {
			return UniquenessResult{}, fmt.Errorf("lookup %s by email: %w", kind, err)
		}
		for _, unit := range units {
			if exclude != nil && exclude.Kind == kind && exclude.ID == unit.ID {
				continue
			}
			return UniquenessResult{
				Valid:        false,
				Reason:       fmt.Sprintf("email %q is already used by %s %q", normalized, kind.Label(), unit.Name),
				ConflictKind: kind,
				ConflictID:   unit.ID,
			}, nil
		}
	}
	return UniquenessResult{Valid: true}, nil
}

// Resolve returns the unit owning email, or nil. Sections win over departments and
// departments over directions, so the most specific level is chosen when data overlaps.
func (d *OrgEmailDirectory) Resolve(ctx context.Context, email, orgID string) (*ResolvedUnit, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, nil
	}
	for _, kind := range resolveOrder {
		units, err := d.units.FindUnitsByEmail(ctx, orgID, kind, normalized)
		if err != nil {
			return nil, fmt.Errorf("lookup %s by email: %w", kind, err)
		}
		if len(units) > 0 {
			return &ResolvedUnit{Kind: kind, Unit: units[0]}, nil
		}
	}
	return nil, nil
}
