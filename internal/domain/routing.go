package domain

// RoutingPath names the cascade step that produced a decision.
type RoutingPath string

const (
	RoutingPathCatalogItem     RoutingPath = "catalog_item"
	RoutingPathCategory        RoutingPath = "category"
	RoutingPathCatalogCategory RoutingPath = "catalog_category"
	RoutingPathPlacement       RoutingPath = "placement"
	RoutingPathTriage          RoutingPath = "triage"
)

// RoutingDecision is merged into a ticket before it is created.
// The origin references hold only records the cascade actually loaded.
type RoutingDecision struct {
	Path              RoutingPath
	Priority          TicketPriority
	Type              TicketType
	Status            TicketStatus
	SLAID             *string
	CatalogItemID     *string
	CategoryID        *string
	CatalogCategoryID *string
	DirectionID       *string
	DepartmentID      *string
	SectionID         *string
	AssigneeID        *string
	FallbackReason    string
}

// Apply merges the decision into the ticket.
func (d RoutingDecision) Apply(t *Ticket) {
	t.Priority = d.Priority
	t.Type = d.Type
	t.Status = d.Status
	t.SLAID = d.SLAID
	t.DirectionID = d.DirectionID
	t.DepartmentID = d.DepartmentID
	t.SectionID = d.SectionID
	t.CatalogItemID = d.CatalogItemID
	t.CategoryID = d.CategoryID
	t.CatalogCategoryID = d.CatalogCategoryID
	t.AssigneeID = d.AssigneeID
}
