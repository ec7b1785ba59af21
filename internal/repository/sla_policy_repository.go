package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SLAPolicyRepository stores owner-managed SLA policies. Policies are never deleted.
type SLAPolicyRepository interface {
	Create(ctx context.Context, policy *domain.SLAPolicy) error
	Update(ctx context.Context, policy *domain.SLAPolicy) error
	GetByID(ctx context.Context, id int64) (*domain.SLAPolicy, error)
	List(ctx context.Context) ([]domain.SLAPolicy, error)
	// ListActiveByPriority returns active policies for priority, earliest created first.
	ListActiveByPriority(ctx context.Context, priority domain.TicketPriority) ([]domain.SLAPolicy, error)
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSLAPolicyRepository builds repository.
func NewSLAPolicyRepository(pool *pgxpool.Pool) SLAPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

func (r *slaPolicyRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        INSERT INTO sla_policies (name, priority, response_hours, resolution_hours, active, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		policy.Name,
		policy.Priority,
		policy.ResponseHours,
		policy.ResolutionHours,
		policy.Active,
		policy.CreatedAt,
	).Scan(&policy.ID)
}

func (r *slaPolicyRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        UPDATE sla_policies SET name=$1, priority=$2, response_hours=$3, resolution_hours=$4, active=$5
        WHERE id=$6
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query,
		policy.Name,
		policy.Priority,
		policy.ResponseHours,
		policy.ResolutionHours,
		policy.Active,
		policy.ID,
	).Scan(&policy.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	policy.CreatedAt = policy.CreatedAt.UTC()
	return nil
}

func (r *slaPolicyRepository) GetByID(ctx context.Context, id int64) (*domain.SLAPolicy, error) {
	const query = `
        SELECT id, name, priority, response_hours, resolution_hours, active, created_at
        FROM sla_policies WHERE id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	policies, err := scanPolicies(rows)
	if err != nil {
		return nil, err
	}
	if len(policies) == 0 {
		return nil, ErrNotFound
	}
	return &policies[0], nil
}

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	const query = `
        SELECT id, name, priority, response_hours, resolution_hours, active, created_at
        FROM sla_policies ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func (r *slaPolicyRepository) ListActiveByPriority(ctx context.Context, priority domain.TicketPriority) ([]domain.SLAPolicy, error) {
	const query = `
        SELECT id, name, priority, response_hours, resolution_hours, active, created_at
        FROM sla_policies WHERE priority=$1 AND active
        ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, string(priority))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func scanPolicies(rows pgx.Rows) ([]domain.SLAPolicy, error) {
	result := []domain.SLAPolicy{}
	for rows.Next() {
		var p domain.SLAPolicy
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Priority,
			&p.ResponseHours,
			&p.ResolutionHours,
			&p.Active,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		result = append(result, p)
	}
	return result, rows.Err()
}
