package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SuggestionRepository persists generated suggestions as opaque records.
type SuggestionRepository interface {
	Create(ctx context.Context, suggestion *domain.Suggestion) error
	GetByID(ctx context.Context, id int64) (*domain.Suggestion, error)
	// List returns suggestions newest first; a nil ticketID lists all tickets.
	List(ctx context.Context, ticketID *int64) ([]domain.Suggestion, error)
	MarkAccepted(ctx context.Context, id int64) (*domain.Suggestion, error)
}

type suggestionRepository struct {
	pool *pgxpool.Pool
}

// NewSuggestionRepository builds repository.
func NewSuggestionRepository(pool *pgxpool.Pool) SuggestionRepository {
	return &suggestionRepository{pool: pool}
}

const suggestionColumns = `id, ticket_id, suggestion_type, content, model_used, accepted, generated_at`

func (r *suggestionRepository) Create(ctx context.Context, s *domain.Suggestion) error {
	const query = `
        INSERT INTO ai_suggestions (ticket_id, suggestion_type, content, model_used, accepted, generated_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		s.TicketID,
		s.Kind,
		s.Content,
		s.ModelUsed,
		s.Accepted,
		s.GeneratedAt,
	).Scan(&s.ID)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

func (r *suggestionRepository) GetByID(ctx context.Context, id int64) (*domain.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM ai_suggestions WHERE id=$1`
	s, err := scanSuggestion(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (r *suggestionRepository) List(ctx context.Context, ticketID *int64) ([]domain.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM ai_suggestions`
	args := []any{}
	if ticketID != nil {
		query += ` WHERE ticket_id=$1`
		args = append(args, *ticketID)
	}
	query += ` ORDER BY generated_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Suggestion{}
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *suggestionRepository) MarkAccepted(ctx context.Context, id int64) (*domain.Suggestion, error) {
	query := `UPDATE ai_suggestions SET accepted=TRUE WHERE id=$1 RETURNING ` + suggestionColumns
	s, err := scanSuggestion(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func scanSuggestion(row pgx.Row) (*domain.Suggestion, error) {
	var s domain.Suggestion
	if err := row.Scan(
		&s.ID,
		&s.TicketID,
		&s.Kind,
		&s.Content,
		&s.ModelUsed,
		&s.Accepted,
		&s.GeneratedAt,
	); err != nil {
		return nil, err
	}
	s.GeneratedAt = s.GeneratedAt.UTC()
	return &s, nil
}
