package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
	history *service.HistoryService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, history *service.HistoryService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, history: history}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	priority, err := domain.ParseTicketPriority(req.Priority)
	if err != nil {
		return service.EnumValidation(err)
	}
	category, err := domain.ParseTicketCategory(req.Category)
	if err != nil {
		return service.EnumValidation(err)
	}

	view, err := h.service.CreateTicket(c.UserContext(), *identity, service.TicketCreateInput{
		Subject:       req.Subject,
		Description:   req.Description,
		Priority:      priority,
		Category:      category,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		AssignedTo:    req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(view)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	input, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	views, err := h.service.ListTickets(c.UserContext(), input)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(views))
	for i := range views {
		items = append(items, ticketResponse(&views[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	detail, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(detail)})
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, err := domain.ParseTicketStatus(req.Status)
	if err != nil {
		return service.EnumValidation(err)
	}
	priority, err := domain.ParseTicketPriority(req.Priority)
	if err != nil {
		return service.EnumValidation(err)
	}
	category, err := domain.ParseTicketCategory(req.Category)
	if err != nil {
		return service.EnumValidation(err)
	}

	view, err := h.service.EditTicket(c.UserContext(), *identity, id, service.TicketEditInput{
		Subject:     req.Subject,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		Category:    category,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// AddReply POST /tickets/:id/replies.
func (h *TicketsHandler) AddReply(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.CreateReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	reply, err := h.service.AddReply(c.UserContext(), *identity, id, service.TicketReplyInput{
		Author:     req.Author,
		Content:    req.Content,
		IsInternal: req.IsInternal,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": replyResponse(reply)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	entries, err := h.history.ForTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, historyResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ResolveTicket POST /tickets/:id/resolve.
func (h *TicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	return h.transition(c, h.service.ResolveTicket)
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	return h.transition(c, h.service.CloseTicket)
}

func (h *TicketsHandler) transition(c *fiber.Ctx, apply func(context.Context, domain.Identity, int64) (*service.TicketView, error)) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	view, err := apply(c.UserContext(), *identity, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListInput, error) {
	input := service.TicketListInput{}

	for _, raw := range splitQuery(c.Query("status")) {
		status, err := domain.ParseTicketStatus(raw)
		if err != nil {
			return input, service.EnumValidation(err)
		}
		input.Statuses = append(input.Statuses, status)
	}
	for _, raw := range splitQuery(c.Query("priority")) {
		priority, err := domain.ParseTicketPriority(raw)
		if err != nil {
			return input, service.EnumValidation(err)
		}
		input.Priorities = append(input.Priorities, priority)
	}
	for _, raw := range splitQuery(c.Query("category")) {
		category, err := domain.ParseTicketCategory(raw)
		if err != nil {
			return input, service.EnumValidation(err)
		}
		input.Categories = append(input.Categories, category)
	}

	sort, err := repository.ParseTicketSort(c.Query("sort_by"))
	if err != nil {
		return input, service.EnumValidation(err)
	}
	input.Sort = sort

	if pageSize := parseInt(c.Query("page_size"), 0); pageSize > 0 {
		page := parseInt(c.Query("page"), 1)
		input.Limit = pageSize
		input.Offset = (page - 1) * pageSize
	}
	return input, nil
}

func splitQuery(val string) []string {
	if val == "" {
		return nil
	}
	parts := []string{}
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func pathID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id must be a positive integer", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func callerIdentity(c *fiber.Ctx) (*domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return identity, nil
}
