package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// SuggestionRecorder observes generation outcomes.
type SuggestionRecorder interface {
	RecordSuggestion(kind, outcome string)
}

// SuggestionService drafts replies, summaries and categorizations for tickets.
// Suggestions are stored for review and never change ticket state.
type SuggestionService struct {
	tickets     repository.TicketRepository
	replies     repository.TicketReplyRepository
	suggestions repository.SuggestionRepository
	generator   Generator
	recorder    SuggestionRecorder
	logger      *zap.Logger
	now         func() time.Time
}

// SuggestionDependencies bundles collaborators for the suggestion service.
type SuggestionDependencies struct {
	TicketRepo     repository.TicketRepository
	ReplyRepo      repository.TicketReplyRepository
	SuggestionRepo repository.SuggestionRepository
	Generator      Generator
	Recorder       SuggestionRecorder
	Logger         *zap.Logger
	Now            func() time.Time
}

// NewSuggestionService constructs the service. A nil Generator makes every
// generation attempt fail with a suggestion error.
func NewSuggestionService(deps SuggestionDependencies) *SuggestionService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionService{
		tickets:     deps.TicketRepo,
		replies:     deps.ReplyRepo,
		suggestions: deps.SuggestionRepo,
		generator:   deps.Generator,
		recorder:    deps.Recorder,
		logger:      logger,
		now:         now,
	}
}

// Generate builds a prompt from the ticket and its conversation, asks the
// generator and stores the result.
func (s *SuggestionService) Generate(ctx context.Context, ticketID int64, kind domain.SuggestionKind) (*domain.Suggestion, error) {
	if !slices.Contains(domain.SuggestionKinds, kind) {
		return nil, EnumValidation(&domain.EnumError{Field: "suggestion_type", Value: string(kind)})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, s.storageFailure("load ticket", err)
	}
	replies, err := s.replies.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, s.storageFailure("list replies", err)
	}

	if s.generator == nil {
		s.record(kind, "unavailable")
		return nil, apperrors.NewSuggestionError("text generation is not configured", nil)
	}

	prompt := BuildPrompt(kind, ticket, replies)
	content, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.record(kind, "error")
		s.logger.Warn("suggestion generation failed", zap.Int64("ticket_id", ticketID), zap.String("kind", string(kind)), zap.Error(err))
		return nil, apperrors.NewSuggestionError("text generation failed", err)
	}

	suggestion := &domain.Suggestion{
		TicketID:    ticketID,
		Kind:        kind,
		Content:     content,
		ModelUsed:   s.generator.Model(),
		GeneratedAt: s.now().UTC(),
	}
	if err := s.suggestions.Create(ctx, suggestion); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, s.storageFailure("store suggestion", err)
	}

	s.record(kind, "ok")
	s.logger.Info("suggestion generated", zap.Int64("ticket_id", ticketID), zap.Int64("suggestion_id", suggestion.ID), zap.String("kind", string(kind)))
	return suggestion, nil
}

// List returns suggestions newest first, optionally restricted to one ticket.
func (s *SuggestionService) List(ctx context.Context, ticketID *int64) ([]domain.Suggestion, error) {
	result, err := s.suggestions.List(ctx, ticketID)
	if err != nil {
		return nil, s.storageFailure("list suggestions", err)
	}
	return result, nil
}

// Accept marks a suggestion as used by an agent.
func (s *SuggestionService) Accept(ctx context.Context, id int64) (*domain.Suggestion, error) {
	suggestion, err := s.suggestions.MarkAccepted(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("suggestion", map[string]any{"id": id})
		}
		return nil, s.storageFailure("accept suggestion", err)
	}
	return suggestion, nil
}

// BuildPrompt renders the instruction for kind followed by the ticket context.
func BuildPrompt(kind domain.SuggestionKind, ticket *domain.Ticket, replies []domain.TicketReply) string {
	var instruction string
	switch kind {
	case domain.SuggestionReplyDraft:
		instruction = "You are a helpful support agent. Draft a professional and empathetic reply to this ticket."
	case domain.SuggestionSummary:
		instruction = "Summarize the key points of this support ticket conversation in 3-5 bullet points."
	case domain.SuggestionCategorization:
		instruction = fmt.Sprintf(
			"Analyze this ticket and suggest the most appropriate Category (%s) and Priority (%s). Provide reasoning.",
			joinEnum(domain.TicketCategories), joinEnum(domain.TicketPriorities))
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString(" Context:\n")
	fmt.Fprintf(&b, "Ticket Subject: %s\n", ticket.Subject)
	fmt.Fprintf(&b, "Description: %s\n", ticket.Description)
	fmt.Fprintf(&b, "Status: %s, Priority: %s, Category: %s\n", ticket.Status, ticket.Priority, ticket.Category)
	b.WriteString("History:\n")
	for _, r := range replies {
		fmt.Fprintf(&b, "- %s: %s\n", r.Author, r.Content)
	}
	return b.String()
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func (s *SuggestionService) record(kind domain.SuggestionKind, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordSuggestion(string(kind), outcome)
	}
}

func (s *SuggestionService) storageFailure(op string, err error) error {
	s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
	return apperrors.NewStorageError(op, err)
}
