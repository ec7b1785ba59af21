package dto

import (
	"time"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject       string  `json:"subject"`
	Description   string  `json:"description"`
	Priority      string  `json:"priority"`
	Category      string  `json:"category"`
	CustomerEmail string  `json:"customer_email"`
	CustomerName  *string `json:"customer_name"`
	AssignedTo    *string `json:"assigned_to"`
}

// UpdateTicketRequest overwrites every editable field.
type UpdateTicketRequest struct {
	Subject     string  `json:"subject"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	Category    string  `json:"category"`
	AssignedTo  *string `json:"assigned_to"`
}

// CreateReplyRequest payload.
type CreateReplyRequest struct {
	Author     string `json:"author"`
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

// TicketResponse is a ticket with its live SLA classification.
type TicketResponse struct {
	ID            int64      `json:"id"`
	CreatorID     string     `json:"creator_id"`
	Subject       string     `json:"subject"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	Category      string     `json:"category"`
	AssignedTo    *string    `json:"assigned_to"`
	CustomerEmail string     `json:"customer_email"`
	CustomerName  *string    `json:"customer_name"`
	SLADue        *time.Time `json:"sla_due"`
	SLAStatus     string     `json:"sla_status"`
	ResolvedAt    *time.Time `json:"resolved_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TicketDetailResponse adds the conversation.
type TicketDetailResponse struct {
	TicketResponse
	Replies []ReplyResponse `json:"replies"`
}

// ReplyResponse represents one conversation entry.
type ReplyResponse struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	Author     string    `json:"author"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// TicketHistoryResponse is one audit trail entry.
type TicketHistoryResponse struct {
	ID         int64          `json:"id"`
	ChangeType string         `json:"change_type"`
	ChangedBy  string         `json:"changed_by"`
	OldValue   map[string]any `json:"old_value"`
	NewValue   map[string]any `json:"new_value"`
	CreatedAt  time.Time      `json:"created_at"`
}
