package service

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketEditInput carries the full editable field set; every field overwrites.
type TicketEditInput struct {
	Subject     string
	Description string
	Status      domain.TicketStatus
	Priority    domain.TicketPriority
	Category    domain.TicketCategory
	AssignedTo  *string
}

// applyEdit overwrites editable fields. The SLA deadline is left untouched even
// when priority changes; it is fixed at creation.
func applyEdit(ticket *domain.Ticket, input TicketEditInput, now time.Time) {
	previous := ticket.Status

	ticket.Subject = input.Subject
	ticket.Description = input.Description
	ticket.Status = input.Status
	ticket.Priority = input.Priority
	ticket.Category = input.Category
	ticket.AssignedTo = normalizeOptional(input.AssignedTo)
	ticket.UpdatedAt = now

	if input.Status == domain.TicketStatusResolved && previous != domain.TicketStatusResolved {
		stamp := now
		ticket.ResolvedAt = &stamp
	}
}

// applyResolve marks the ticket resolved. Repeating it refreshes resolved_at.
func applyResolve(ticket *domain.Ticket, now time.Time) {
	stamp := now
	ticket.Status = domain.TicketStatusResolved
	ticket.ResolvedAt = &stamp
	ticket.UpdatedAt = now
}

// applyClose marks the ticket closed without requiring a prior resolution.
func applyClose(ticket *domain.Ticket, now time.Time) {
	ticket.Status = domain.TicketStatusClosed
	ticket.UpdatedAt = now
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// stringPreview shortens body to at most max runes, marking the cut with "...".
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
