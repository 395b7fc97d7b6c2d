package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-router/internal/api/dto"
	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/service"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// OrgUnitsHandler exposes the organizational email directory.
type OrgUnitsHandler struct {
	directory    *service.OrgEmailDirectory
	defaultOrgID string
}

// NewOrgUnitsHandler constructs handler.
func NewOrgUnitsHandler(directory *service.OrgEmailDirectory, defaultOrgID string) *OrgUnitsHandler {
	return &OrgUnitsHandler{directory: directory, defaultOrgID: defaultOrgID}
}

// ValidateEmail POST /api/v1/org-units/email/validate.
func (h *OrgUnitsHandler) ValidateEmail(c *fiber.Ctx) error {
	var req dto.ValidateEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := service.ValidateEmail(req.Email); err != nil {
		return err
	}
	var exclude *domain.UnitRef
	if req.ExcludeKind != "" && req.ExcludeID != "" {
		if !validKind(req.ExcludeKind) {
			return apperrors.NewValidationError("invalid exclude_kind", map[string]any{"exclude_kind": req.ExcludeKind})
		}
		exclude = &domain.UnitRef{Kind: req.ExcludeKind, ID: req.ExcludeID}
	}
	result, err := h.directory.ValidateUniqueness(c.UserContext(), req.Email, h.orgID(req.OrgID), exclude)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ValidateEmailResponse{
		Valid:        result.Valid,
		Reason:       result.Reason,
		ConflictKind: result.ConflictKind,
		ConflictID:   result.ConflictID,
	}})
}

// ResolveEmail GET /api/v1/org-units/email/resolve?email=&org_id=.
func (h *OrgUnitsHandler) ResolveEmail(c *fiber.Ctx) error {
	email := c.Query("email")
	resolved, err := h.directory.Resolve(c.UserContext(), email, h.orgID(c.Query("org_id")))
	if err != nil {
		return err
	}
	if resolved == nil {
		return apperrors.NewNotFound("org unit", map[string]any{"email": service.NormalizeEmail(email)})
	}
	return c.JSON(fiber.Map{"data": dto.ResolvedUnitResponse{
		Kind: resolved.Kind,
		ID:   resolved.Unit.ID,
		Name: resolved.Unit.Name,
	}})
}

func (h *OrgUnitsHandler) orgID(value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return h.defaultOrgID
}

func validKind(kind domain.UnitKind) bool {
	switch kind {
	case domain.UnitKindDirection, domain.UnitKindDepartment, domain.UnitKindSection:
		return true
	default:
		return false
	}
}
