package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusWaiting    TicketStatus = "waiting"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusWaiting,
	TicketStatusResolved,
	TicketStatusClosed,
}

// IsTerminal reports whether SLA tracking no longer applies.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists priorities from least to most urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// Rank orders priorities; higher is more urgent.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityUrgent:
		return 3
	case TicketPriorityHigh:
		return 2
	case TicketPriorityMedium:
		return 1
	default:
		return 0
	}
}

// TicketCategory classifies what the ticket is about.
type TicketCategory string

const (
	TicketCategoryBug            TicketCategory = "bug"
	TicketCategoryFeatureRequest TicketCategory = "feature_request"
	TicketCategoryQuestion       TicketCategory = "question"
	TicketCategoryBilling        TicketCategory = "billing"
	TicketCategoryAccount        TicketCategory = "account"
	TicketCategoryOther          TicketCategory = "other"
)

// TicketCategories lists every category.
var TicketCategories = []TicketCategory{
	TicketCategoryBug,
	TicketCategoryFeatureRequest,
	TicketCategoryQuestion,
	TicketCategoryBilling,
	TicketCategoryAccount,
	TicketCategoryOther,
}

// ParseTicketStatus validates a raw status value.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	return parseEnum("status", raw, TicketStatuses)
}

// ParseTicketPriority validates a raw priority value.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	return parseEnum("priority", raw, TicketPriorities)
}

// ParseTicketCategory validates a raw category value.
func ParseTicketCategory(raw string) (TicketCategory, error) {
	return parseEnum("category", raw, TicketCategories)
}

// EnumError reports a value outside a closed enumeration.
type EnumError struct {
	Field string
	Value string
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

func parseEnum[T ~string](field, raw string, allowed []T) (T, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for _, candidate := range allowed {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	var zero T
	return zero, &EnumError{Field: field, Value: raw}
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            int64
	CreatorID     string
	Subject       string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	Category      TicketCategory
	AssignedTo    *string
	CustomerEmail string
	CustomerName  *string
	SLADue        *time.Time
	ResolvedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TicketReply is one immutable entry in a ticket conversation.
type TicketReply struct {
	ID         int64
	TicketID   int64
	Author     string
	Content    string
	IsInternal bool
	CreatedAt  time.Time
}
