package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/sla"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// SLAHandler exposes policy management and the breach report.
type SLAHandler struct {
	service *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{service: slaService}
}

// ListPolicies GET /sla/policies.
func (h *SLAHandler) ListPolicies(c *fiber.Ctx) error {
	policies, err := h.service.ListPolicies(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.PolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, policyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreatePolicy POST /sla/policies.
func (h *SLAHandler) CreatePolicy(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	input, err := parsePolicyRequest(c)
	if err != nil {
		return err
	}
	policy, err := h.service.CreatePolicy(c.UserContext(), *identity, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": policyResponse(policy)})
}

// UpdatePolicy PUT /sla/policies/:id.
func (h *SLAHandler) UpdatePolicy(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	input, err := parsePolicyRequest(c)
	if err != nil {
		return err
	}
	policy, err := h.service.UpdatePolicy(c.UserContext(), *identity, id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policyResponse(policy)})
}

// Breaches GET /sla/breaches.
func (h *SLAHandler) Breaches(c *fiber.Ctx) error {
	breaches, err := h.service.Breaches(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.BreachResponse, 0, len(breaches))
	for i := range breaches {
		view := service.TicketView{Ticket: breaches[i].Ticket, SLAStatus: sla.Breached}
		items = append(items, dto.BreachResponse{
			TicketResponse: ticketResponse(&view),
			OverdueMinutes: int64(breaches[i].Overdue / time.Minute),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parsePolicyRequest(c *fiber.Ctx) (service.PolicyInput, error) {
	var req dto.PolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return service.PolicyInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	priority, err := domain.ParseTicketPriority(req.Priority)
	if err != nil {
		return service.PolicyInput{}, service.EnumValidation(err)
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return service.PolicyInput{
		Name:            req.Name,
		Priority:        priority,
		ResponseHours:   req.ResponseHours,
		ResolutionHours: req.ResolutionHours,
		Active:          active,
	}, nil
}
