package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-router/internal/api/dto"
	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/service"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// TicketsHandler exposes ticket intake endpoints.
type TicketsHandler struct {
	service      *service.TicketService
	defaultOrgID string
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, defaultOrgID string) *TicketsHandler {
	return &TicketsHandler{service: ticketService, defaultOrgID: defaultOrgID}
}

// CreateTicket POST /api/v1/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	orgID := strings.TrimSpace(req.OrgID)
	if orgID == "" {
		orgID = h.defaultOrgID
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		OrgID:             orgID,
		Title:             req.Title,
		Description:       req.Description,
		CatalogItemID:     req.CatalogItemID,
		CategoryID:        req.CategoryID,
		CatalogCategoryID: req.CatalogCategoryID,
		Priority:          req.Priority,
		Urgency:           req.Urgency,
		Impact:            req.Impact,
		DirectionID:       req.DirectionID,
		DepartmentID:      req.DepartmentID,
		SectionID:         req.SectionID,
		Source:            domain.TicketSourceAPI,
		RequesterEmail:    req.RequesterEmail,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddComment POST /api/v1/tickets/:number/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.FindByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	comment, err := h.service.AppendComment(c.UserContext(), ticket.ID, service.CommentInput{
		AuthorEmail: req.AuthorEmail,
		Body:        req.Body,
		Source:      domain.TicketSourceAPI,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                ticket.ID,
		Number:            ticket.Number,
		OrgID:             ticket.OrgID,
		Title:             ticket.Title,
		Description:       ticket.Description,
		Type:              ticket.Type,
		Status:            ticket.Status,
		Priority:          ticket.Priority,
		Source:            ticket.Source,
		CatalogItemID:     ticket.CatalogItemID,
		CategoryID:        ticket.CategoryID,
		CatalogCategoryID: ticket.CatalogCategoryID,
		SLAID:             ticket.SLAID,
		DirectionID:       ticket.DirectionID,
		DepartmentID:      ticket.DepartmentID,
		SectionID:         ticket.SectionID,
		AssigneeID:        ticket.AssigneeID,
		RequesterEmail:    ticket.RequesterEmail,
		Metadata:          ticket.Metadata,
		CreatedAt:         ticket.CreatedAt,
		UpdatedAt:         ticket.UpdatedAt,
	}
}

func commentResponse(comment *domain.TicketComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:          comment.ID,
		TicketID:    comment.TicketID,
		AuthorEmail: comment.AuthorEmail,
		Body:        comment.Body,
		Source:      comment.Source,
		Attachments: comment.Attachments,
		CreatedAt:   comment.CreatedAt,
	}
}
