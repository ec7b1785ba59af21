package dto

import "time"

// SuggestionRequest asks for generated text about a ticket.
type SuggestionRequest struct {
	TicketID       int64  `json:"ticket_id"`
	SuggestionType string `json:"suggestion_type"`
}

// SuggestionResponse payload.
type SuggestionResponse struct {
	ID             int64     `json:"id"`
	TicketID       int64     `json:"ticket_id"`
	SuggestionType string    `json:"suggestion_type"`
	Content        string    `json:"content"`
	ModelUsed      string    `json:"model_used"`
	Accepted       bool      `json:"accepted"`
	GeneratedAt    time.Time `json:"generated_at"`
}
