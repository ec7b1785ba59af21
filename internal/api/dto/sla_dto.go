package dto

import "time"

// PolicyRequest creates or replaces an SLA policy.
type PolicyRequest struct {
	Name            string `json:"name"`
	Priority        string `json:"priority"`
	ResponseHours   int    `json:"response_hours"`
	ResolutionHours int    `json:"resolution_hours"`
	Active          *bool  `json:"is_active"`
}

// PolicyResponse payload.
type PolicyResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Priority        string    `json:"priority"`
	ResponseHours   int       `json:"response_hours"`
	ResolutionHours int       `json:"resolution_hours"`
	Active          bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// BreachResponse is an overdue ticket.
type BreachResponse struct {
	TicketResponse
	OverdueMinutes int64 `json:"overdue_minutes"`
}

// DashboardResponse is the aggregate snapshot.
type DashboardResponse struct {
	GeneratedAt   time.Time        `json:"generated_at"`
	Total         int              `json:"total"`
	Open          int              `json:"open"`
	ResolvedToday int              `json:"resolved_today"`
	ByStatus      map[string]int   `json:"by_status"`
	ByPriority    map[string]int   `json:"by_priority"`
	SLA           SLACounts        `json:"sla"`
	Recent        []TicketResponse `json:"recent"`
}

// SLACounts groups the dashboard compliance counters.
type SLACounts struct {
	Approaching int `json:"approaching"`
	Breached    int `json:"breached"`
}
