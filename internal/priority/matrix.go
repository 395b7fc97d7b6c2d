// Package priority implements the ITIL urgency/impact matrix.
package priority

import (
	"strings"

	"github.com/spec-kit/ticket-router/internal/domain"
)

const (
	low      = domain.TicketPriorityLow
	medium   = domain.TicketPriorityMedium
	high     = domain.TicketPriorityHigh
	critical = domain.TicketPriorityCritical
)

// matrix[urgency][impact]. Urgency dominates impact, so the table is not symmetric.
var matrix = map[domain.TicketPriority]map[domain.TicketPriority]domain.TicketPriority{
	critical: {critical: critical, high: critical, medium: high, low: medium},
	high:     {critical: critical, high: high, medium: high, low: medium},
	medium:   {critical: high, high: high, medium: medium, low: low},
	low:      {critical: medium, high: medium, medium: low, low: low},
}

// Calculate maps an (urgency, impact) pair onto a priority level.
// Unknown inputs fall back to medium.
func Calculate(urgency, impact domain.TicketPriority) domain.TicketPriority {
	row, ok := matrix[Parse(string(urgency))]
	if !ok {
		return medium
	}
	level, ok := row[Parse(string(impact))]
	if !ok {
		return medium
	}
	return level
}

// Parse normalizes a level name. It returns "" for values outside the scale.
func Parse(value string) domain.TicketPriority {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(low):
		return low
	case string(medium):
		return medium
	case string(high):
		return high
	case string(critical):
		return critical
	default:
		return ""
	}
}

// Valid reports whether value names a level on the scale.
func Valid(value domain.TicketPriority) bool {
	return Parse(string(value)) != ""
}
