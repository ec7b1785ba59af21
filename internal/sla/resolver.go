package sla

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// PolicyStore is the read side of the SLA policy store used for resolution.
type PolicyStore interface {
	ListActiveByPriority(ctx context.Context, priority domain.TicketPriority) ([]domain.SLAPolicy, error)
}

// Resolver computes ticket deadlines from the active policy set.
type Resolver struct {
	policies PolicyStore
}

// NewResolver binds a resolver to a policy store.
func NewResolver(policies PolicyStore) *Resolver {
	return &Resolver{policies: policies}
}

// Resolution is the outcome of resolving a deadline. Due and Policy are nil
// when no active policy covers the priority.
type Resolution struct {
	Due    *time.Time
	Policy *domain.SLAPolicy
}

// Resolve picks the active policy for priority and returns createdAt plus its
// resolution budget. Store errors are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, priority domain.TicketPriority, createdAt time.Time) (Resolution, error) {
	candidates, err := r.policies.ListActiveByPriority(ctx, priority)
	if err != nil {
		return Resolution{}, err
	}
	policy := SelectPolicy(candidates, priority)
	if policy == nil {
		return Resolution{}, nil
	}
	due := Deadline(*policy, createdAt)
	return Resolution{Due: &due, Policy: policy}, nil
}

// Deadline returns createdAt advanced by the policy's resolution hours.
func Deadline(policy domain.SLAPolicy, createdAt time.Time) time.Time {
	return createdAt.Add(policy.ResolutionBudget())
}

// SelectPolicy returns the earliest-created active policy for priority, using
// the lowest id to break ties. Inactive or mismatched entries are ignored.
func SelectPolicy(policies []domain.SLAPolicy, priority domain.TicketPriority) *domain.SLAPolicy {
	matches := make([]domain.SLAPolicy, 0, len(policies))
	for _, p := range policies {
		if p.Active && p.Priority == priority {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
	selected := matches[0]
	return &selected
}
