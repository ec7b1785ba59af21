package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketReplyRepository manages ticket conversation entries.
type TicketReplyRepository interface {
	// Append stores the reply and bumps the parent ticket's updated_at in one
	// step. It returns ErrNotFound when the ticket does not exist.
	Append(ctx context.Context, reply *domain.TicketReply) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketReply, error)
}

type ticketReplyRepository struct {
	pool *pgxpool.Pool
}

// NewTicketReplyRepository builds repository.
func NewTicketReplyRepository(pool *pgxpool.Pool) TicketReplyRepository {
	return &ticketReplyRepository{pool: pool}
}

func (r *ticketReplyRepository) Append(ctx context.Context, reply *domain.TicketReply) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx,
			`UPDATE tickets SET updated_at=GREATEST(updated_at, $2) WHERE id=$1`,
			reply.TicketID, reply.CreatedAt)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		const query = `
            INSERT INTO ticket_replies (ticket_id, author, content, is_internal, created_at)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id`
		return tx.QueryRow(ctx, query,
			reply.TicketID,
			reply.Author,
			reply.Content,
			reply.IsInternal,
			reply.CreatedAt,
		).Scan(&reply.ID)
	})
}

func (r *ticketReplyRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketReply, error) {
	const query = `
        SELECT id, ticket_id, author, content, is_internal, created_at
        FROM ticket_replies WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketReply{}
	for rows.Next() {
		var reply domain.TicketReply
		if err := rows.Scan(
			&reply.ID,
			&reply.TicketID,
			&reply.Author,
			&reply.Content,
			&reply.IsInternal,
			&reply.CreatedAt,
		); err != nil {
			return nil, err
		}
		reply.CreatedAt = reply.CreatedAt.UTC()
		result = append(result, reply)
	}
	return result, rows.Err()
}
