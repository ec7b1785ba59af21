package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketReplyAdded    EventType = "ticket_reply_added"
	EventSLAPolicyChanged    EventType = "sla_policy_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, ticketID int64, actorID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject       string                `json:"subject"`
	Priority      domain.TicketPriority `json:"priority"`
	Category      domain.TicketCategory `json:"category"`
	CustomerEmail string                `json:"customer_email"`
	SLADue        *time.Time            `json:"sla_due,omitempty"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldPriority   domain.TicketPriority `json:"old_priority"`
	NewPriority   domain.TicketPriority `json:"new_priority"`
	OldAssignedTo *string               `json:"old_assigned_to,omitempty"`
	AssignedTo    *string               `json:"assigned_to,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketReplyAddedPayload payload.
type TicketReplyAddedPayload struct {
	ReplyID     int64  `json:"reply_id"`
	Author      string `json:"author"`
	IsInternal  bool   `json:"is_internal"`
	BodyPreview string `json:"body_preview"`
}

// SLAPolicyChangedPayload payload.
type SLAPolicyChangedPayload struct {
	PolicyID        int64                 `json:"policy_id"`
	Priority        domain.TicketPriority `json:"priority"`
	ResolutionHours int                   `json:"resolution_hours"`
	Active          bool                  `json:"active"`
}
