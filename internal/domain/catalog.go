package domain

import "time"

// AssignmentType selects how a catalog item picks an agent.
type AssignmentType string

const (
	AssignmentAgent       AssignmentType = "agent"
	AssignmentRoundRobin  AssignmentType = "round_robin"
	AssignmentLoadBalance AssignmentType = "load_balance"
	AssignmentSection     AssignmentType = "section"
	AssignmentDepartment  AssignmentType = "department"
	AssignmentManual      AssignmentType = "manual"
)

// CatalogItem is a requestable service definition carrying routing defaults.
type CatalogItem struct {
	ID               string
	OrgID            string
	Name             string
	DirectionID      *string
	DepartmentID     *string
	SectionID        *string
	CategoryID       *string
	SLAID            *string
	DefaultPriority  TicketPriority
	RequiresApproval bool
	AssignmentType   AssignmentType
	AssignedAgentID  *string
	UsageCount       int64
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Category is a plain ticket category.
type Category struct {
	ID                  string
	OrgID               string
	Name                string
	DefaultDepartmentID *string
}

// CatalogCategory groups catalog items and may carry a default placement.
type CatalogCategory struct {
	ID                  string
	OrgID               string
	Name                string
	DefaultDirectionID  *string
	DefaultDepartmentID *string
}
