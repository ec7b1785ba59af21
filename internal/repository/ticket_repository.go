package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ErrNotFound is returned when the addressed record does not exist.
var ErrNotFound = errors.New("record not found")

// isForeignKeyViolation reports a child row pointing at a missing ticket.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// TicketSort selects the list ordering.
type TicketSort string

const (
	SortCreatedAt TicketSort = "created_at"
	SortPriority  TicketSort = "priority"
	SortSLADue    TicketSort = "sla_due"
)

// ParseTicketSort validates a sort key; empty selects created_at.
func ParseTicketSort(raw string) (TicketSort, error) {
	switch TicketSort(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SortCreatedAt:
		return SortCreatedAt, nil
	case SortPriority:
		return SortPriority, nil
	case SortSLADue:
		return SortSLADue, nil
	}
	return "", &domain.EnumError{Field: "sort_by", Value: raw}
}

// TicketFilter captures list parameters. Limit <= 0 means no limit.
type TicketFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Categories []domain.TicketCategory
	Sort       TicketSort
	Limit      int
	Offset     int
}

// TicketMutation edits a loaded ticket in place; returning an error aborts the write.
type TicketMutation func(ticket *domain.Ticket) error

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// Mutate loads the row, applies fn and writes it back as one atomic step.
	Mutate(ctx context.Context, id int64, fn TicketMutation) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, creator_id, subject, description, status, priority, category, assigned_to,
               customer_email, customer_name, sla_due, resolved_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (creator_id, subject, description, status, priority, category, assigned_to,
            customer_email, customer_name, sla_due, resolved_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		ticket.CreatorID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.AssignedTo,
		ticket.CustomerEmail,
		ticket.CustomerName,
		ticket.SLADue,
		ticket.ResolvedAt,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ticket, err
}

func (r *ticketRepository) Mutate(ctx context.Context, id int64, fn TicketMutation) (*domain.Ticket, error) {
	var result *domain.Ticket
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
		ticket, err := scanTicket(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}
		if err := fn(ticket); err != nil {
			return err
		}
		const update = `
            UPDATE tickets SET subject=$1, description=$2, status=$3, priority=$4, category=$5,
                assigned_to=$6, customer_email=$7, customer_name=$8, sla_due=$9, resolved_at=$10, updated_at=$11
            WHERE id=$12`
		if _, err := tx.Exec(ctx, update,
			ticket.Subject,
			ticket.Description,
			ticket.Status,
			ticket.Priority,
			ticket.Category,
			ticket.AssignedTo,
			ticket.CustomerEmail,
			ticket.CustomerName,
			ticket.SLADue,
			ticket.ResolvedAt,
			ticket.UpdatedAt,
			ticket.ID,
		); err != nil {
			return err
		}
		result = ticket
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args := buildTicketListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func buildTicketListQuery(filter TicketFilter) (string, []any) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, string(pr))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, cat := range filter.Categories {
			args = append(args, string(cat))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s`, base, strings.Join(clauses, " AND "), orderClause(filter.Sort))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}
	return query, args
}

func orderClause(sort TicketSort) string {
	switch sort {
	case SortPriority:
		return `CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END ASC, created_at DESC, id DESC`
	case SortSLADue:
		return `sla_due ASC NULLS LAST, id ASC`
	default:
		return `created_at DESC, id DESC`
	}
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.CreatorID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.AssignedTo,
		&ticket.CustomerEmail,
		&ticket.CustomerName,
		&ticket.SLADue,
		&ticket.ResolvedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	normalizeTicketTimes(&ticket)
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func normalizeTicketTimes(t *domain.Ticket) {
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	t.SLADue = utcPtr(t.SLADue)
	t.ResolvedAt = utcPtr(t.ResolvedAt)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
