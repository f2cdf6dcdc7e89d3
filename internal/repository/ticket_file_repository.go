package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFileRepository persists attachment metadata.
type TicketFileRepository interface {
	Create(ctx context.Context, file *domain.TicketFile) error
	GetByID(ctx context.Context, id int64) (*domain.TicketFile, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketFile, error)
	Delete(ctx context.Context, id int64) error
	DeleteByTicket(ctx context.Context, ticketID int64) error
}

type ticketFileRepository struct {
	db Querier
}

const ticketFileColumns = `id, ticket_id, stored_name, original_name, storage_path, size_bytes,
               content_type, uploaded_by, uploaded_at`

func (r *ticketFileRepository) Create(ctx context.Context, file *domain.TicketFile) error {
	const query = `
        INSERT INTO ticket_files (ticket_id, stored_name, original_name, storage_path, size_bytes,
            content_type, uploaded_by, uploaded_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return mapError(r.db.QueryRow(ctx, query,
		file.TicketID,
		file.StoredName,
		file.OriginalName,
		file.StoragePath,
		file.SizeBytes,
		file.ContentType,
		file.UploadedBy,
		file.UploadedAt,
	).Scan(&file.ID))
}

func (r *ticketFileRepository) GetByID(ctx context.Context, id int64) (*domain.TicketFile, error) {
	var file domain.TicketFile
	if err := r.db.QueryRow(ctx, `SELECT `+ticketFileColumns+` FROM ticket_files WHERE id=$1`, id).Scan(
		&file.ID,
		&file.TicketID,
		&file.StoredName,
		&file.OriginalName,
		&file.StoragePath,
		&file.SizeBytes,
		&file.ContentType,
		&file.UploadedBy,
		&file.UploadedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &file, nil
}

func (r *ticketFileRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketFile, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ticketFileColumns+` FROM ticket_files WHERE ticket_id=$1 ORDER BY uploaded_at ASC, id ASC`, ticketID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.TicketFile
	for rows.Next() {
		var file domain.TicketFile
		if err := rows.Scan(
			&file.ID,
			&file.TicketID,
			&file.StoredName,
			&file.OriginalName,
			&file.StoragePath,
			&file.SizeBytes,
			&file.ContentType,
			&file.UploadedBy,
			&file.UploadedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, file)
	}
	return result, rows.Err()
}

func (r *ticketFileRepository) Delete(ctx context.Context, id int64) error {
	return requireAffected(r.db.Exec(ctx, `DELETE FROM ticket_files WHERE id=$1`, id))
}

func (r *ticketFileRepository) DeleteByTicket(ctx context.Context, ticketID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM ticket_files WHERE ticket_id=$1`, ticketID)
	return mapError(err)
}
