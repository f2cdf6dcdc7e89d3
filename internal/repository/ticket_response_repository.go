package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketResponseRepository stores the comment thread of a ticket.
type TicketResponseRepository interface {
	Create(ctx context.Context, response *domain.TicketResponse) error
	ListByTicket(ctx context.Context, ticketID int64, includeInternal bool) ([]domain.TicketResponse, error)
	DeleteByTicket(ctx context.Context, ticketID int64) error
}

type ticketResponseRepository struct {
	db Querier
}

func (r *ticketResponseRepository) Create(ctx context.Context, response *domain.TicketResponse) error {
	const query = `
        INSERT INTO ticket_responses (ticket_id, author_id, message, is_internal, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return mapError(r.db.QueryRow(ctx, query,
		response.TicketID,
		response.AuthorID,
		response.Message,
		response.IsInternal,
		response.CreatedAt,
	).Scan(&response.ID))
}

func (r *ticketResponseRepository) ListByTicket(ctx context.Context, ticketID int64, includeInternal bool) ([]domain.TicketResponse, error) {
	query := `
        SELECT id, ticket_id, author_id, message, is_internal, created_at
        FROM ticket_responses WHERE ticket_id=$1`
	if !includeInternal {
		query += ` AND is_internal = FALSE`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.TicketResponse
	for rows.Next() {
		var response domain.TicketResponse
		if err := rows.Scan(
			&response.ID,
			&response.TicketID,
			&response.AuthorID,
			&response.Message,
			&response.IsInternal,
			&response.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, response)
	}
	return result, rows.Err()
}

func (r *ticketResponseRepository) DeleteByTicket(ctx context.Context, ticketID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM ticket_responses WHERE ticket_id=$1`, ticketID)
	return mapError(err)
}
