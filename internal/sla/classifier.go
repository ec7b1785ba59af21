// Package sla holds the pure SLA rules: deadline resolution, compliance
// classification and the dashboard aggregation built on top of them.
package sla

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ApproachingWindow is how far ahead of its deadline a ticket counts as approaching.
const ApproachingWindow = 2 * time.Hour

// Classification is the compliance state of a ticket at a point in time.
type Classification string

const (
	NotApplicable Classification = "not_applicable"
	OnTrack       Classification = "on_track"
	Approaching   Classification = "approaching"
	Breached      Classification = "breached"
)

// Classify evaluates a ticket's SLA state at now. The result depends on the
// wall clock and must not be stored.
func Classify(status domain.TicketStatus, due *time.Time, now time.Time) Classification {
	if status.IsTerminal() {
		return NotApplicable
	}
	if due == nil {
		return NotApplicable
	}
	if due.Before(now) {
		return Breached
	}
	if !due.After(now.Add(ApproachingWindow)) {
		return Approaching
	}
	return OnTrack
}

// ClassifyTicket is Classify applied to a ticket.
func ClassifyTicket(ticket *domain.Ticket, now time.Time) Classification {
	if ticket == nil {
		return NotApplicable
	}
	return Classify(ticket.Status, ticket.SLADue, now)
}
