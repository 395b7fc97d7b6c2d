package domain

import "time"

// Agent models a support agent eligible for automatic assignment.
type Agent struct {
	ID             string
	OrgID          string
	Name           string
	Email          string
	DirectionID    *string
	DepartmentID   *string
	SectionID      *string
	Active         bool
	LastAssignedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
