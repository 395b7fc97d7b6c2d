package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/observability"
	"github.com/spec-kit/ticket-router/internal/service"
	"github.com/spec-kit/ticket-router/internal/ticketnumber"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// NoSubject titles tickets created from mail without a subject.
const NoSubject = "(no subject)"

// Message outcomes reported in metrics and logs.
const (
	OutcomeCreated  = "created"
	OutcomeAppended = "appended"
	OutcomeFailed   = "failed"
)

type ticketWriter interface {
	CreateTicket(ctx context.Context, input service.TicketCreateInput) (*domain.Ticket, error)
	AppendComment(ctx context.Context, ticketID string, input service.CommentInput) (*domain.TicketComment, error)
	FindByNumber(ctx context.Context, number string) (*domain.Ticket, error)
}

type unitResolver interface {
	Resolve(ctx context.Context, email, orgID string) (*service.ResolvedUnit, error)
}

// PollResult summarizes one batch.
type PollResult struct {
	Fetched  int
	Created  int
	Appended int
	Failed   int
	// Skipped is set when another poll held the guard or the lease.
	Skipped bool
}

// Pipeline drains a mailbox into tickets.
type Pipeline struct {
	mailbox   Mailbox
	tickets   ticketWriter
	directory unitResolver
	locker    Locker
	orgID     string
	logger    *zap.Logger
	metrics   *observability.Metrics

	running atomic.Bool
}

// PipelineDependencies bundles collaborators. Locker is optional.
type PipelineDependencies struct {
	Mailbox   Mailbox
	Tickets   ticketWriter
	Directory unitResolver
	Locker    Locker
	OrgID     string
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// NewPipeline creates the pipeline.
func NewPipeline(deps PipelineDependencies) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		mailbox:   deps.Mailbox,
		tickets:   deps.Tickets,
		directory: deps.Directory,
		locker:    deps.Locker,
		orgID:     deps.OrgID,
		logger:    logger,
		metrics:   deps.Metrics,
	}
}

// Poll fetches unread messages and processes them one by one. It is not reentrant:
// a call made while another is running returns immediately with Skipped set.
// A failing message is logged and still marked processed so it is not fetched again.
func (p *Pipeline) Poll(ctx context.Context) (PollResult, error) {
	if !p.running.CompareAndSwap(false, true) {
		p.metrics.RecordPoll("skipped")
		return PollResult{Skipped: true}, nil
	}
	defer p.running.Store(false)

	if p.locker != nil {
		unlock, ok, err := p.locker.TryLock(ctx)
		if err != nil {
			p.metrics.RecordPoll("error")
			return PollResult{}, err
		}
		if !ok {
			p.metrics.RecordPoll("skipped")
			return PollResult{Skipped: true}, nil
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn("failed to release ingestion lease", zap.Error(err))
			}
		}()
	}

	result, err := p.drain(ctx)
	if err != nil {
		p.metrics.RecordPoll("error")
		return result, err
	}
	p.metrics.RecordPoll("ok")
	if result.Fetched > 0 {
		p.logger.Info("mailbox poll finished",
			zap.Int("fetched", result.Fetched),
			zap.Int("created", result.Created),
			zap.Int("appended", result.Appended),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

func (p *Pipeline) drain(ctx context.Context) (PollResult, error) {
	var result PollResult
	defer func() {
		if err := p.mailbox.Close(); err != nil {
			p.logger.Warn("failed to close mailbox", zap.Error(err))
		}
	}()

	messages, err := p.mailbox.FetchUnread(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch unread: %w", err)
	}
	result.Fetched = len(messages)

	for _, raw := range messages {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome, err := p.process(ctx, raw)
		if err != nil {
			outcome = OutcomeFailed
			p.logger.Warn("failed to ingest message", zap.Uint32("uid", raw.UID), zap.Error(err))
		}
		switch outcome {
		case OutcomeCreated:
			result.Created++
		case OutcomeAppended:
			result.Appended++
		default:
			result.Failed++
		}
		p.metrics.RecordIngestedMessage(outcome)

		if err := p.mailbox.MarkProcessed(ctx, raw); err != nil {
			p.logger.Warn("failed to mark message processed", zap.Uint32("uid", raw.UID), zap.Error(err))
		}
	}
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, raw RawMessage) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while ingesting message: %v", r)
		}
	}()

	msg, err := ParseMessage(raw.Raw)
	if err != nil {
		return OutcomeFailed, err
	}

	if number, ok := ticketnumber.Find(msg.Subject); ok {
		ticket, err := p.tickets.FindByNumber(ctx, number)
		switch {
		case err == nil:
			if _, err := p.tickets.AppendComment(ctx, ticket.ID, service.CommentInput{
				AuthorEmail: msg.From,
				Body:        msg.Body,
				Source:      domain.TicketSourceEmail,
				Attachments: msg.Attachments,
			}); err != nil {
				return OutcomeFailed, fmt.Errorf("append reply to %s: %w", number, err)
			}
			return OutcomeAppended, nil
		case errors.Is(err, apperrors.ErrNotFound):
			p.logger.Debug("subject references unknown ticket", zap.String("number", number))
		default:
			return OutcomeFailed, fmt.Errorf("look up ticket %s: %w", number, err)
		}
	}

	input := p.newTicketInput(ctx, msg)
	if _, err := p.tickets.CreateTicket(ctx, input); err != nil {
		return OutcomeFailed, fmt.Errorf("create ticket from email: %w", err)
	}
	return OutcomeCreated, nil
}

func (p *Pipeline) newTicketInput(ctx context.Context, msg *InboundMessage) service.TicketCreateInput {
	title := msg.Subject
	if title == "" {
		title = NoSubject
	}
	input := service.TicketCreateInput{
		OrgID:          p.orgID,
		Title:          title,
		Description:    msg.Body,
		Source:         domain.TicketSourceEmail,
		RequesterEmail: msg.From,
	}

	destinations := msg.Destinations()
	emailTo := ""
	if len(destinations) > 0 {
		emailTo = destinations[0]
	}
	if addr, resolved := p.resolveDestination(ctx, destinations); resolved != nil {
		emailTo = addr
		unitID := resolved.Unit.ID
		switch resolved.Kind {
		case domain.UnitKindSection:
			input.SectionID = &unitID
		case domain.UnitKindDepartment:
			input.DepartmentID = &unitID
		case domain.UnitKindDirection:
			input.DirectionID = &unitID
		}
	}

	input.Metadata = map[string]any{
		domain.MetaEmailFrom:        msg.From,
		domain.MetaEmailTo:          emailTo,
		domain.MetaEmailMessageID:   msg.MessageID,
		domain.MetaEmailAttachments: msg.Attachments,
	}
	return input
}

// resolveDestination returns the first address that belongs to a unit.
func (p *Pipeline) resolveDestination(ctx context.Context, destinations []string) (string, *service.ResolvedUnit) {
	for _, addr := range destinations {
		resolved, err := p.directory.Resolve(ctx, addr, p.orgID)
		if err != nil {
			p.logger.Warn("failed to resolve destination", zap.String("address", addr), zap.Error(err))
			continue
		}
		if resolved != nil {
			return addr, resolved
		}
	}
	return "", nil
}
