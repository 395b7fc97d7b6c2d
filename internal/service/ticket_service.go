package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/events"
	"github.com/spec-kit/ticket-router/internal/priority"
	"github.com/spec-kit/ticket-router/internal/repository"
	"github.com/spec-kit/ticket-router/internal/ticketnumber"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

const systemActor = "system"

// maxCreateAttempts bounds how many ticket numbers are tried before giving up.
const maxCreateAttempts = 5

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.TicketCommentRepository
	history    repository.TicketHistoryRepository
	routing    *RoutingService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	newNumber  func() string
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.TicketCommentRepository
	HistoryRepo repository.TicketHistoryRepository
	Routing     *RoutingService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       func() time.Time

	// NumberGenerator defaults to ticketnumber.Generate.
	NumberGenerator func() string
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	OrgID             string
	Title             string
	Description       string
	CatalogItemID     *string
	CategoryID        *string
	CatalogCategoryID *string
	Priority          domain.TicketPriority
	Urgency           domain.TicketPriority
	Impact            domain.TicketPriority
	DirectionID       *string
	DepartmentID      *string
	SectionID         *string
	Source            domain.TicketSource
	RequesterEmail    string
	Metadata          map[string]any
}

// CommentInput describes a comment appended to an existing ticket.
type CommentInput struct {
	AuthorEmail string
	Body        string
	Source      domain.TicketSource
	Attachments []domain.AttachmentSummary
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newNumber := deps.NumberGenerator
	if newNumber == nil {
		newNumber = ticketnumber.Generate
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		routing:    deps.Routing,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
		newNumber:  newNumber,
	}
}

// CreateTicket routes and stores a new ticket. Routing problems never fail creation.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if err := validateCreateInput(&input); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		OrgID:          input.OrgID,
		Title:          input.Title,
		Description:    strings.TrimSpace(input.Description),
		Urgency:        input.Urgency,
		Impact:         input.Impact,
		Source:         input.Source,
		RequesterEmail: NormalizeEmail(input.RequesterEmail),
		Metadata:       input.Metadata,
	}
	if ticket.Source == "" {
		ticket.Source = domain.TicketSourceAPI
	}

	routingInput := RoutingInput{
		OrgID:             input.OrgID,
		CatalogItemID:     input.CatalogItemID,
		CategoryID:        input.CategoryID,
		CatalogCategoryID: input.CatalogCategoryID,
		Priority:          input.Priority,
		Urgency:           input.Urgency,
		Impact:            input.Impact,
		DirectionID:       input.DirectionID,
		DepartmentID:      input.DepartmentID,
		SectionID:         input.SectionID,
	}
	decision, err := s.store(ctx, ticket, routingInput, s.routing.Resolve(ctx, routingInput))
	if err != nil {
		return nil, err
	}

	actor := actorOf(ticket.Source, ticket.RequesterEmail)
	s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:   ticket.ID,
		ChangedBy:  changedBy(ticket.RequesterEmail),
		ChangeType: domain.ChangeTypeRouted,
		NewValue: map[string]any{
			"path":            string(decision.Path),
			"status":          string(ticket.Status),
			"priority":        string(ticket.Priority),
			"direction_id":    ticket.DirectionID,
			"department_id":   ticket.DepartmentID,
			"section_id":      ticket.SectionID,
			"assignee_id":     ticket.AssigneeID,
			"fallback_reason": decision.FallbackReason,
		},
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			Number:         ticket.Number,
			RoutingPath:    decision.Path,
			FallbackReason: decision.FallbackReason,
			DirectionID:    ticket.DirectionID,
			DepartmentID:   ticket.DepartmentID,
			SectionID:      ticket.SectionID,
			Priority:       ticket.Priority,
			Status:         ticket.Status,
			Title:          ticket.Title,
		},
	})
	if ticket.AssigneeID != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    events.Actor{Source: ticket.Source},
			Payload:  events.TicketAssignedPayload{AssigneeID: *ticket.AssigneeID},
		})
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("number", ticket.Number),
		zap.String("routing_path", string(decision.Path)),
		zap.String("status", string(ticket.Status)))
	return ticket, nil
}

// store numbers and inserts the ticket. A taken number is regenerated. A reference the
// storage rejects sends the ticket to triage, which carries no caller supplied ids.
func (s *TicketService) store(ctx context.Context, ticket *domain.Ticket, in RoutingInput, decision domain.RoutingDecision) (domain.RoutingDecision, error) {
	var err error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		ticket.Number = s.newNumber()
		decision.Apply(ticket)
		err = s.tickets.Create(ctx, ticket)
		switch {
		case err == nil:
			return decision, nil
		case errors.Is(err, repository.ErrConflict):
			s.logger.Warn("ticket number taken; regenerating",
				zap.String("number", ticket.Number),
				zap.Int("attempt", attempt))
		case errors.Is(err, repository.ErrInvalidReference) && decision.Path != domain.RoutingPathTriage:
			s.logger.Warn("ticket references rejected by storage; routing to triage",
				zap.String("routing_path", string(decision.Path)),
				zap.Error(err))
			decision = s.routing.Fallback(ctx, in, err.Error())
		default:
			return decision, fmt.Errorf("create ticket: %w", err)
		}
	}
	return decision, fmt.Errorf("create ticket after %d attempts: %w", maxCreateAttempts, err)
}

// AppendComment adds a comment to an existing ticket.
func (s *TicketService) AppendComment(ctx context.Context, ticketID string, input CommentInput) (*domain.TicketComment, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" && len(input.Attachments) == 0 {
		return nil, apperrors.NewValidationError("comment body is required", map[string]any{"field": "body"})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, fmt.Errorf("load ticket: %w", err)
	}

	comment := &domain.TicketComment{
		TicketID:    ticket.ID,
		AuthorEmail: NormalizeEmail(input.AuthorEmail),
		Body:        body,
		Source:      input.Source,
		Attachments: input.Attachments,
	}
	if comment.Source == "" {
		comment.Source = domain.TicketSourceAPI
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:   ticket.ID,
		ChangedBy:  changedBy(comment.AuthorEmail),
		ChangeType: domain.ChangeTypeCommentAdded,
		NewValue:   map[string]any{"comment_id": comment.ID, "source": string(comment.Source)},
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    actorOf(comment.Source, comment.AuthorEmail),
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			AuthorEmail: comment.AuthorEmail,
			BodyPreview: stringPreview(comment.Body, 140),
			Attachments: len(comment.Attachments),
		},
	})
	return comment, nil
}

// FindByNumber looks a ticket up by its human facing number.
func (s *TicketService) FindByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if !ticketnumber.Valid(number) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"number": number})
	}
	ticket, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"number": number})
		}
		return nil, fmt.Errorf("find ticket by number: %w", err)
	}
	return ticket, nil
}

func validateCreateInput(input *TicketCreateInput) error {
	input.OrgID = strings.TrimSpace(input.OrgID)
	input.Title = strings.TrimSpace(input.Title)
	if input.OrgID == "" {
		return apperrors.NewValidationError("org id is required", map[string]any{"field": "org_id"})
	}
	if input.Title == "" {
		return apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	levels := map[string]*domain.TicketPriority{
		"priority": &input.Priority,
		"urgency":  &input.Urgency,
		"impact":   &input.Impact,
	}
	for field, level := range levels {
		if *level == "" {
			continue
		}
		parsed := priority.Parse(string(*level))
		if parsed == "" {
			return apperrors.NewValidationError("invalid priority level", map[string]any{"field": field, "value": string(*level)})
		}
		*level = parsed
	}
	return nil
}

func (s *TicketService) recordHistory(ctx context.Context, entry *domain.TicketHistory) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record ticket history",
			zap.String("ticket_id", entry.TicketID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	// Handler failures are logged by the dispatcher and never fail the caller.
	_ = s.dispatcher.Publish(ctx, event)
}

func actorOf(source domain.TicketSource, email string) events.Actor {
	return events.Actor{Source: source, Email: email}
}

func changedBy(email string) string {
	if email == "" {
		return systemActor
	}
	return email
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
