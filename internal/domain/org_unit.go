package domain

import "time"

// UnitKind identifies one level of the organizational hierarchy.
type UnitKind string

const (
	UnitKindDirection  UnitKind = "direction"
	UnitKindDepartment UnitKind = "department"
	UnitKindSection    UnitKind = "section"
)

// Label returns the human readable kind name.
func (k UnitKind) Label() string {
	switch k {
	case UnitKindDirection:
		return "Direction"
	case UnitKindDepartment:
		return "Department"
	case UnitKindSection:
		return "Section"
	default:
		return string(k)
	}
}

// OrgUnit is a Direction, Department or Section.
// Departments point at a Direction and Sections at a Department through ParentID.
type OrgUnit struct {
	ID        string
	OrgID     string
	Kind      UnitKind
	Name      string
	Email     *string
	ParentID  *string
	IsTriage  bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UnitRef identifies a unit across kinds.
type UnitRef struct {
	Kind UnitKind
	ID   string
}
