package domain

import "time"

// SLAPolicy binds a priority tier to response and resolution budgets.
type SLAPolicy struct {
	ID              int64
	Name            string
	Priority        TicketPriority
	ResponseHours   int
	ResolutionHours int
	Active          bool
	CreatedAt       time.Time
}

// ResolutionBudget returns the resolution window as a duration.
func (p SLAPolicy) ResolutionBudget() time.Duration {
	return time.Duration(p.ResolutionHours) * time.Hour
}

// DefaultSLAPolicies is the starter policy set applied to an empty store.
func DefaultSLAPolicies() []SLAPolicy {
	return []SLAPolicy{
		{Name: "Urgent", Priority: TicketPriorityUrgent, ResponseHours: 1, ResolutionHours: 4, Active: true},
		{Name: "High", Priority: TicketPriorityHigh, ResponseHours: 4, ResolutionHours: 12, Active: true},
		{Name: "Medium", Priority: TicketPriorityMedium, ResponseHours: 8, ResolutionHours: 24, Active: true},
		{Name: "Low", Priority: TicketPriorityLow, ResponseHours: 24, ResolutionHours: 72, Active: true},
	}
}
