package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// SuggestionsHandler exposes generated reply drafts, summaries and categorizations.
type SuggestionsHandler struct {
	service *service.SuggestionService
}

// NewSuggestionsHandler constructs handler.
func NewSuggestionsHandler(suggestions *service.SuggestionService) *SuggestionsHandler {
	return &SuggestionsHandler{service: suggestions}
}

// Generate POST /suggestions.
func (h *SuggestionsHandler) Generate(c *fiber.Ctx) error {
	var req dto.SuggestionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID <= 0 {
		return apperrors.NewValidationError("ticket_id is required", map[string]any{"field": "ticket_id"})
	}
	kind, err := domain.ParseSuggestionKind(req.SuggestionType)
	if err != nil {
		return service.EnumValidation(err)
	}
	suggestion, err := h.service.Generate(c.UserContext(), req.TicketID, kind)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": suggestionResponse(suggestion)})
}

// List GET /suggestions.
func (h *SuggestionsHandler) List(c *fiber.Ctx) error {
	var ticketID *int64
	if raw := c.Query("ticket_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return apperrors.NewValidationError("ticket_id must be a positive integer", map[string]any{"ticket_id": raw})
		}
		ticketID = &id
	}
	suggestions, err := h.service.List(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.SuggestionResponse, 0, len(suggestions))
	for i := range suggestions {
		items = append(items, suggestionResponse(&suggestions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Accept POST /suggestions/:id/accept.
func (h *SuggestionsHandler) Accept(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	suggestion, err := h.service.Accept(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": suggestionResponse(suggestion)})
}
