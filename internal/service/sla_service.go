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

// SLAService manages policies and reports deadline breaches.
type SLAService struct {
	policies   repository.SLAPolicyRepository
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	PolicyRepo repository.SLAPolicyRepository
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// PolicyInput is the writable field set of a policy.
type PolicyInput struct {
	Name            string
	Priority        domain.TicketPriority
	ResponseHours   int
	ResolutionHours int
	Active          bool
}

// BreachView is an overdue ticket and how far past its deadline it is.
type BreachView struct {
	Ticket  domain.Ticket
	Overdue time.Duration
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAService{
		policies:   deps.PolicyRepo,
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// ListPolicies returns every policy ordered by id.
func (s *SLAService) ListPolicies(ctx context.Context) ([]domain.SLAPolicy, error) {
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, s.storageFailure("list sla policies", err)
	}
	return policies, nil
}

// CreatePolicy stores a new policy. It only affects tickets created afterwards.
func (s *SLAService) CreatePolicy(ctx context.Context, actor domain.Identity, input PolicyInput) (*domain.SLAPolicy, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validatePolicy(input); err != nil {
		return nil, err
	}

	policy := &domain.SLAPolicy{
		Name:            input.Name,
		Priority:        input.Priority,
		ResponseHours:   input.ResponseHours,
		ResolutionHours: input.ResolutionHours,
		Active:          input.Active,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, s.storageFailure("create sla policy", err)
	}

	s.logger.Info("sla policy created", zap.Int64("policy_id", policy.ID), zap.String("priority", string(policy.Priority)))
	s.publishPolicyChange(ctx, actor, policy)
	return policy, nil
}

// UpdatePolicy overwrites a policy. Existing ticket deadlines are not touched.
func (s *SLAService) UpdatePolicy(ctx context.Context, actor domain.Identity, id int64, input PolicyInput) (*domain.SLAPolicy, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validatePolicy(input); err != nil {
		return nil, err
	}

	policy := &domain.SLAPolicy{
		ID:              id,
		Name:            input.Name,
		Priority:        input.Priority,
		ResponseHours:   input.ResponseHours,
		ResolutionHours: input.ResolutionHours,
		Active:          input.Active,
	}
	if err := s.policies.Update(ctx, policy); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("sla policy", map[string]any{"id": id})
		}
		return nil, s.storageFailure("update sla policy", err)
	}

	stored, err := s.policies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("sla policy", map[string]any{"id": id})
		}
		return nil, s.storageFailure("reload sla policy", err)
	}

	s.logger.Info("sla policy updated", zap.Int64("policy_id", id), zap.Bool("active", stored.Active))
	s.publishPolicyChange(ctx, actor, stored)
	return stored, nil
}

// Breaches lists non-terminal tickets past their deadline, most overdue first.
func (s *SLAService) Breaches(ctx context.Context) ([]BreachView, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Statuses: nonTerminalStatuses(),
		Sort:     repository.SortSLADue,
	})
	if err != nil {
		return nil, s.storageFailure("list breached tickets", err)
	}

	now := s.now().UTC()
	breached := sla.Breaches(tickets, now)
	views := make([]BreachView, 0, len(breached))
	for _, t := range breached {
		views = append(views, BreachView{Ticket: t, Overdue: now.Sub(*t.SLADue)})
	}
	return views, nil
}

// SeedDefaults installs the starter policy set when the store has none.
func (s *SLAService) SeedDefaults(ctx context.Context) (int, error) {
	existing, err := s.policies.List(ctx)
	if err != nil {
		return 0, s.storageFailure("list sla policies", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	now := s.now().UTC()
	for _, p := range domain.DefaultSLAPolicies() {
		policy := p
		policy.CreatedAt = now
		if err := s.policies.Create(ctx, &policy); err != nil {
			return 0, s.storageFailure("seed sla policies", err)
		}
	}
	seeded := len(domain.DefaultSLAPolicies())
	s.logger.Info("seeded default sla policies", zap.Int("count", seeded))
	return seeded, nil
}

func (s *SLAService) publishPolicyChange(ctx context.Context, actor domain.Identity, policy *domain.SLAPolicy) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventSLAPolicyChanged, 0, actor.UserID, s.now().UTC(), events.SLAPolicyChangedPayload{
		PolicyID:        policy.ID,
		Priority:        policy.Priority,
		ResolutionHours: policy.ResolutionHours,
		Active:          policy.Active,
	}))
}

func (s *SLAService) storageFailure(op string, err error) error {
	s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
	return apperrors.NewStorageError(op, err)
}

func validatePolicy(input PolicyInput) error {
	if input.Name == "" {
		return apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if !slices.Contains(domain.TicketPriorities, input.Priority) {
		return EnumValidation(&domain.EnumError{Field: "priority", Value: string(input.Priority)})
	}
	if input.ResponseHours <= 0 {
		return apperrors.NewValidationError("response_hours must be positive", map[string]any{"field": "response_hours"})
	}
	if input.ResolutionHours <= 0 {
		return apperrors.NewValidationError("resolution_hours must be positive", map[string]any{"field": "resolution_hours"})
	}
	return nil
}

func nonTerminalStatuses() []domain.TicketStatus {
	result := []domain.TicketStatus{}
	for _, st := range domain.TicketStatuses {
		if !st.IsTerminal() {
			result = append(result, st)
		}
	}
	return result
}
