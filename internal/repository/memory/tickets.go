package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository"
)

// Create stores the ticket and fills identity and timestamps.
// A number already held by another ticket yields repository.ErrConflict.
func (s *Store) Create(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.ticketsByNumber[ticket.Number]; taken && ticket.Number != "" {
		return fmt.Errorf("%w: ticket number %s", repository.ErrConflict, ticket.Number)
	}
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = s.now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	s.tickets[ticket.ID] = &copied
	if ticket.Number != "" {
		s.ticketsByNumber[ticket.Number] = ticket.ID
	}
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (s *Store) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	s.mu.RLock()
	id, ok := s.ticketsByNumber[number]
	s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// Tickets returns every stored ticket.
func (s *Store) Tickets() []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		result = append(result, *ticket)
	}
	return result
}

// Comments exposes the comment repository view of the store.
func (s *Store) Comments() repository.TicketCommentRepository {
	return commentStore{s}
}

// History exposes the history repository view of the store.
func (s *Store) History() repository.TicketHistoryRepository {
	return historyStore{s}
}

type commentStore struct{ s *Store }

func (c commentStore) Create(_ context.Context, comment *domain.TicketComment) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.tickets[comment.TicketID]; !ok {
		return repository.ErrNotFound
	}
	comment.ID = uuid.NewString()
	comment.CreatedAt = c.s.now()
	c.s.comments[comment.TicketID] = append(c.s.comments[comment.TicketID], *comment)
	return nil
}

func (c commentStore) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketComment, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return append([]domain.TicketComment(nil), c.s.comments[ticketID]...), nil
}

type historyStore struct{ s *Store }

func (h historyStore) Create(_ context.Context, entry *domain.TicketHistory) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = h.s.now()
	h.s.history[entry.TicketID] = append(h.s.history[entry.TicketID], *entry)
	return nil
}

func (h historyStore) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	return append([]domain.TicketHistory(nil), h.s.history[ticketID]...), nil
}
