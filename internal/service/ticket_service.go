package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/sla"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	replies    repository.TicketReplyRepository
	resolver   *sla.Resolver
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	ReplyRepo  repository.TicketReplyRepository
	Resolver   *sla.Resolver
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject       string
	Description   string
	Priority      domain.TicketPriority
	Category      domain.TicketCategory
	CustomerEmail string
	CustomerName  *string
	AssignedTo    *string
}

// TicketReplyInput describes a conversation entry.
type TicketReplyInput struct {
	Author     string
	Content    string
	IsInternal bool
}

// TicketListInput carries list filters and ordering.
type TicketListInput struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Categories []domain.TicketCategory
	Sort       repository.TicketSort
	Limit      int
	Offset     int
}

// TicketView pairs a ticket with its compliance state at read time.
type TicketView struct {
	Ticket    domain.Ticket
	SLAStatus sla.Classification
}

// TicketDetail is a ticket with its ordered conversation.
type TicketDetail struct {
	TicketView
	Replies []domain.TicketReply
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		replies:    deps.ReplyRepo,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// CreateTicket opens a ticket and fixes its SLA deadline from the active policy.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Identity, input TicketCreateInput) (*TicketView, error) {
	input.Subject = strings.TrimSpace(input.Subject)
	input.Description = strings.TrimSpace(input.Description)
	input.CustomerEmail = strings.TrimSpace(input.CustomerEmail)
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	now := s.clock()
	resolution, err := s.resolver.Resolve(ctx, input.Priority, now)
	if err != nil {
		return nil, s.storageFailure("resolve sla policy", err)
	}

	ticket := &domain.Ticket{
		CreatorID:     actor.UserID,
		Subject:       input.Subject,
		Description:   input.Description,
		Status:        domain.TicketStatusOpen,
		Priority:      input.Priority,
		Category:      input.Category,
		AssignedTo:    normalizeOptional(input.AssignedTo),
		CustomerEmail: input.CustomerEmail,
		CustomerName:  normalizeOptional(input.CustomerName),
		SLADue:        resolution.Due,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, s.storageFailure("create ticket", err)
	}

	fields := []zap.Field{zap.Int64("ticket_id", ticket.ID), zap.String("priority", string(ticket.Priority))}
	if resolution.Policy != nil {
		fields = append(fields, zap.Int64("policy_id", resolution.Policy.ID), zap.Timep("sla_due", ticket.SLADue))
	}
	s.logger.Info("ticket created", fields...)

	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, actor.UserID, now, events.TicketCreatedPayload{
		Subject:       ticket.Subject,
		Priority:      ticket.Priority,
		Category:      ticket.Category,
		CustomerEmail: ticket.CustomerEmail,
		SLADue:        ticket.SLADue,
	}))
	return s.view(ticket, now), nil
}

// EditTicket overwrites the editable fields of a ticket.
func (s *TicketService) EditTicket(ctx context.Context, actor domain.Identity, id int64, input TicketEditInput) (*TicketView, error) {
	input.Subject = strings.TrimSpace(input.Subject)
	input.Description = strings.TrimSpace(input.Description)
	if err := validateEdit(input); err != nil {
		return nil, err
	}

	now := s.clock()
	var before domain.Ticket
	ticket, err := s.tickets.Mutate(ctx, id, func(t *domain.Ticket) error {
		before = *t
		applyEdit(t, input, now)
		return nil
	})
	if err != nil {
		return nil, s.ticketFailure("edit ticket", id, err)
	}

	s.logger.Info("ticket edited", zap.Int64("ticket_id", id), zap.String("status", string(ticket.Status)))
	s.publishEvent(ctx, events.NewEvent(events.EventTicketUpdated, id, actor.UserID, now, events.TicketUpdatedPayload{
		OldPriority:   before.Priority,
		NewPriority:   ticket.Priority,
		OldAssignedTo: before.AssignedTo,
		AssignedTo:    ticket.AssignedTo,
	}))
	s.publishStatusChange(ctx, actor, id, before.Status, ticket.Status, now)
	return s.view(ticket, now), nil
}

// AddReply appends a conversation entry. The author defaults to the caller's email.
func (s *TicketService) AddReply(ctx context.Context, actor domain.Identity, id int64, input TicketReplyInput) (*domain.TicketReply, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", map[string]any{"field": "content"})
	}
	author := strings.TrimSpace(input.Author)
	if author == "" {
		author = actor.Email
	}
	if author == "" {
		author = actor.UserID
	}

	reply := &domain.TicketReply{
		TicketID:   id,
		Author:     author,
		Content:    content,
		IsInternal: input.IsInternal,
		CreatedAt:  s.clock(),
	}
	if err := s.replies.Append(ctx, reply); err != nil {
		return nil, s.ticketFailure("add reply", id, err)
	}

	s.logger.Info("ticket reply added", zap.Int64("ticket_id", id), zap.Int64("reply_id", reply.ID), zap.Bool("internal", reply.IsInternal))
	s.publishEvent(ctx, events.NewEvent(events.EventTicketReplyAdded, id, actor.UserID, reply.CreatedAt, events.TicketReplyAddedPayload{
		ReplyID:     reply.ID,
		Author:      reply.Author,
		IsInternal:  reply.IsInternal,
		BodyPreview: stringPreview(reply.Content, 120),
	}))
	return reply, nil
}

// ResolveTicket marks a ticket resolved from any status.
func (s *TicketService) ResolveTicket(ctx context.Context, actor domain.Identity, id int64) (*TicketView, error) {
	return s.transition(ctx, actor, id, "resolve ticket", applyResolve)
}

// CloseTicket marks a ticket closed from any status.
func (s *TicketService) CloseTicket(ctx context.Context, actor domain.Identity, id int64) (*TicketView, error) {
	return s.transition(ctx, actor, id, "close ticket", applyClose)
}

func (s *TicketService) transition(ctx context.Context, actor domain.Identity, id int64, op string, apply func(*domain.Ticket, time.Time)) (*TicketView, error) {
	now := s.clock()
	var previous domain.TicketStatus
	ticket, err := s.tickets.Mutate(ctx, id, func(t *domain.Ticket) error {
		previous = t.Status
		apply(t, now)
		return nil
	})
	if err != nil {
		return nil, s.ticketFailure(op, id, err)
	}

	s.logger.Info("ticket status changed",
		zap.Int64("ticket_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(ticket.Status)))
	s.publishStatusChange(ctx, actor, id, previous, ticket.Status, now)
	return s.view(ticket, now), nil
}

// GetTicket returns a ticket with its replies in chronological order.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.ticketFailure("get ticket", id, err)
	}
	replies, err := s.replies.ListByTicket(ctx, id)
	if err != nil {
		return nil, s.storageFailure("list replies", err)
	}
	return &TicketDetail{TicketView: *s.view(ticket, s.clock()), Replies: replies}, nil
}

// ListTickets returns tickets matching the filter in the requested order.
func (s *TicketService) ListTickets(ctx context.Context, input TicketListInput) ([]TicketView, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Statuses:   input.Statuses,
		Priorities: input.Priorities,
		Categories: input.Categories,
		Sort:       input.Sort,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return nil, s.storageFailure("list tickets", err)
	}

	now := s.clock()
	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		views = append(views, *s.view(&tickets[i], now))
	}
	return views, nil
}

func (s *TicketService) view(ticket *domain.Ticket, now time.Time) *TicketView {
	return &TicketView{Ticket: *ticket, SLAStatus: sla.ClassifyTicket(ticket, now)}
}

func (s *TicketService) clock() time.Time {
	return s.now().UTC()
}

func (s *TicketService) publishStatusChange(ctx context.Context, actor domain.Identity, id int64, from, to domain.TicketStatus, now time.Time) {
	if from == to {
		return
	}
	s.publishEvent(ctx, events.NewEvent(events.EventTicketStatusChanged, id, actor.UserID, now, events.TicketStatusChangedPayload{
		OldStatus: from,
		NewStatus: to,
	}))
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *TicketService) ticketFailure(op string, id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return s.storageFailure(op, err)
}

func (s *TicketService) storageFailure(op string, err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
	return apperrors.NewStorageError(op, err)
}

func validateCreate(input TicketCreateInput) error {
	missing := []string{}
	if input.Subject == "" {
		missing = append(missing, "subject")
	}
	if input.Description == "" {
		missing = append(missing, "description")
	}
	if input.CustomerEmail == "" {
		missing = append(missing, "customer_email")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if !strings.Contains(input.CustomerEmail, "@") {
		return apperrors.NewValidationError("invalid customer_email", map[string]any{"field": "customer_email"})
	}
	return validateEnums(nil, &input.Priority, &input.Category)
}

func validateEdit(input TicketEditInput) error {
	missing := []string{}
	if input.Subject == "" {
		missing = append(missing, "subject")
	}
	if input.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	return validateEnums(&input.Status, &input.Priority, &input.Category)
}

// validateEnums re-checks enum values so callers bypassing the HTTP layer
// cannot store values outside the closed sets.
func validateEnums(status *domain.TicketStatus, priority *domain.TicketPriority, category *domain.TicketCategory) error {
	switch {
	case status != nil && !slices.Contains(domain.TicketStatuses, *status):
		return EnumValidation(&domain.EnumError{Field: "status", Value: string(*status)})
	case priority != nil && !slices.Contains(domain.TicketPriorities, *priority):
		return EnumValidation(&domain.EnumError{Field: "priority", Value: string(*priority)})
	case category != nil && !slices.Contains(domain.TicketCategories, *category):
		return EnumValidation(&domain.EnumError{Field: "category", Value: string(*category)})
	}
	return nil
}

// EnumValidation converts an enum parse failure into a validation error.
func EnumValidation(err error) error {
	if err == nil {
		return nil
	}
	var enumErr *domain.EnumError
	if errors.As(err, &enumErr) {
		return apperrors.NewValidationError(enumErr.Error(), map[string]any{"field": enumErr.Field, "value": enumErr.Value})
	}
	return err
}
