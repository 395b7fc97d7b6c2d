// Package memory implements the repository interfaces in process.
// It backs the service when no database is configured and the end-to-end tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository"
)

// Store holds every record in maps guarded by one lock.
type Store struct {
	mu                sync.RWMutex
	now               func() time.Time
	units             map[domain.UnitKind]map[string]*domain.OrgUnit
	agents            map[string]*domain.Agent
	items             map[string]*domain.CatalogItem
	categories        map[string]*domain.Category
	catalogCategories map[string]*domain.CatalogCategory
	slas              map[string]*domain.SLA
	tickets           map[string]*domain.Ticket
	ticketsByNumber   map[string]string
	comments          map[string][]domain.TicketComment
	history           map[string][]domain.TicketHistory
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now: time.Now,
		units: map[domain.UnitKind]map[string]*domain.OrgUnit{
			domain.UnitKindDirection:  {},
			domain.UnitKindDepartment: {},
			domain.UnitKindSection:    {},
		},
		agents:            make(map[string]*domain.Agent),
		items:             make(map[string]*domain.CatalogItem),
		categories:        make(map[string]*domain.Category),
		catalogCategories: make(map[string]*domain.CatalogCategory),
		slas:              make(map[string]*domain.SLA),
		tickets:           make(map[string]*domain.Ticket),
		ticketsByNumber:   make(map[string]string),
		comments:          make(map[string][]domain.TicketComment),
		history:           make(map[string][]domain.TicketHistory),
	}
}

var (
	_ repository.TicketRepository  = (*Store)(nil)
	_ repository.OrgUnitRepository = (*Store)(nil)
	_ repository.AgentRepository   = (*Store)(nil)
	_ repository.CatalogRepository = (*Store)(nil)
	_ repository.SLARepository     = (*Store)(nil)
)

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// AddUnit stores a direction, department or section and returns its id.
func (s *Store) AddUnit(unit domain.OrgUnit) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	unit.ID = ensureID(unit.ID)
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = s.now()
	}
	unit.UpdatedAt = unit.CreatedAt
	s.units[unit.Kind][unit.ID] = &unit
	return unit.ID
}

// AddAgent stores an agent and returns its id.
func (s *Store) AddAgent(agent domain.Agent) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent.ID = ensureID(agent.ID)
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = s.now()
	}
	s.agents[agent.ID] = &agent
	return agent.ID
}

// Agent returns a copy of the stored agent.
func (s *Store) Agent(id string) (domain.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[id]
	if !ok {
		return domain.Agent{}, false
	}
	return *agent, true
}

// AddCatalogItem stores a catalog item and returns its id.
func (s *Store) AddCatalogItem(item domain.CatalogItem) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = ensureID(item.ID)
	s.items[item.ID] = &item
	return item.ID
}

// AddCategory stores a category and returns its id.
func (s *Store) AddCategory(category domain.Category) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	category.ID = ensureID(category.ID)
	s.categories[category.ID] = &category
	return category.ID
}

// AddCatalogCategory stores a catalog category and returns its id.
func (s *Store) AddCatalogCategory(category domain.CatalogCategory) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	category.ID = ensureID(category.ID)
	s.catalogCategories[category.ID] = &category
	return category.ID
}

// AddSLA stores an SLA and returns its id.
func (s *Store) AddSLA(sla domain.SLA) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sla.ID = ensureID(sla.ID)
	if sla.CreatedAt.IsZero() {
		sla.CreatedAt = s.now()
	}
	s.slas[sla.ID] = &sla
	return sla.ID
}

func (s *Store) FindUnitsByEmail(_ context.Context, orgID string, kind domain.UnitKind, email string) ([]domain.OrgUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.OrgUnit
	for _, unit := range s.units[kind] {
		if unit.OrgID != orgID || unit.Email == nil {
			continue
		}
		if strings.ToLower(strings.TrimSpace(*unit.Email)) == email {
			result = append(result, *unit)
		}
	}
	sortUnits(result)
	return result, nil
}

func (s *Store) FindTriageDepartment(_ context.Context, orgID string) (*domain.OrgUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var candidates []domain.OrgUnit
	for _, unit := range s.units[domain.UnitKindDepartment] {
		if unit.OrgID != orgID || !unit.IsActive {
			continue
		}
		if unit.IsTriage || strings.EqualFold(strings.TrimSpace(unit.Name), "triage") {
			candidates = append(candidates, *unit)
		}
	}
	if len(candidates) == 0 {
		return nil, repository.ErrNotFound
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].IsTriage != candidates[j].IsTriage {
			return candidates[i].IsTriage
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return &candidates[0], nil
}

func sortUnits(units []domain.OrgUnit) {
	sort.SliceStable(units, func(i, j int) bool {
		if !units[i].CreatedAt.Equal(units[j].CreatedAt) {
			return units[i].CreatedAt.Before(units[j].CreatedAt)
		}
		return units[i].ID < units[j].ID
	})
}

func (s *Store) ListEligibleAgents(_ context.Context, scope repository.AgentScope) ([]domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Agent
	for _, agent := range s.agents {
		if agent.OrgID != scope.OrgID || !agent.Active {
			continue
		}
		switch {
		case scope.SectionID != nil:
			if agent.SectionID == nil || *agent.SectionID != *scope.SectionID {
				continue
			}
		case scope.DepartmentID != nil:
			if agent.DepartmentID == nil || *agent.DepartmentID != *scope.DepartmentID {
				continue
			}
		default:
			continue
		}
		result = append(result, *agent)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) CountOpenTickets(_ context.Context, agentID string, statuses []domain.TicketStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, ticket := range s.tickets {
		if ticket.AssigneeID == nil || *ticket.AssigneeID != agentID {
			continue
		}
		for _, status := range statuses {
			if ticket.Status == status {
				count++
				break
			}
		}
	}
	return count, nil
}

func (s *Store) TouchLastAssigned(_ context.Context, agentID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return repository.ErrNotFound
	}
	stamp := at
	agent.LastAssignedAt = &stamp
	agent.UpdatedAt = at
	return nil
}

func (s *Store) GetItemByID(_ context.Context, id string) (*domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *Store) IncrementUsage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	item.UsageCount++
	return nil
}

func (s *Store) GetCategoryByID(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	category, ok := s.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *category
	return &copied, nil
}

func (s *Store) GetCatalogCategoryByID(_ context.Context, id string) (*domain.CatalogCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	category, ok := s.catalogCategories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *category
	return &copied, nil
}

func (s *Store) FindActiveSLA(_ context.Context, orgID string, priority domain.TicketPriority, categoryID *string) (*domain.SLA, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *domain.SLA
	for _, sla := range s.slas {
		if sla.OrgID != orgID || !sla.Active || sla.Priority != priority {
			continue
		}
		if categoryID == nil {
			if sla.CategoryID != nil {
				continue
			}
		} else if sla.CategoryID == nil || *sla.CategoryID != *categoryID {
			continue
		}
		if best == nil || sla.CreatedAt.After(best.CreatedAt) {
			best = sla
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	copied := *best
	return &copied, nil
}
