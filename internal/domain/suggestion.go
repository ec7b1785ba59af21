package domain

import "time"

// SuggestionKind selects what the text generator is asked to produce.
type SuggestionKind string

const (
	SuggestionReplyDraft     SuggestionKind = "reply_draft"
	SuggestionSummary        SuggestionKind = "summary"
	SuggestionCategorization SuggestionKind = "categorization"
)

// SuggestionKinds lists the supported kinds.
var SuggestionKinds = []SuggestionKind{
	SuggestionReplyDraft,
	SuggestionSummary,
	SuggestionCategorization,
}

// ParseSuggestionKind validates a raw kind value.
func ParseSuggestionKind(raw string) (SuggestionKind, error) {
	return parseEnum("suggestion_type", raw, SuggestionKinds)
}

// Suggestion is generated text stored as an opaque record; it never drives ticket state.
type Suggestion struct {
	ID          int64
	TicketID    int64
	Kind        SuggestionKind
	Content     string
	ModelUsed   string
	Accepted    bool
	GeneratedAt time.Time
}
