// Package repository defines persistence contracts and their Postgres implementation.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrValueTooLong is returned when a value exceeds its column width.
	ErrValueTooLong = errors.New("value too long for column")
)

const (
	uniqueViolation           = "23505"
	stringDataRightTruncation = "22001"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories struct {
	Tickets      TicketRepository
	Responses    TicketResponseRepository
	Files        TicketFileRepository
	History      TicketHistoryRepository
	Users        UserRepository
	Companies    CompanyRepository
	ServiceTypes ServiceTypeRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repositories() Repositories
	// WithinTx runs fn in a transaction. Returning an error rolls everything back.
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}

func newRepositories(q Querier) Repositories {
	return Repositories{
		Tickets:      &ticketRepository{db: q},
		Responses:    &ticketResponseRepository{db: q},
		Files:        &ticketFileRepository{db: q},
		History:      &ticketHistoryRepository{db: q},
		Users:        &userRepository{db: q},
		Companies:    &companyRepository{db: q},
		ServiceTypes: &serviceTypeRepository{db: q},
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrDuplicate
		case stringDataRightTruncation:
			return fmt.Errorf("%w: %s", ErrValueTooLong, pgErr.Message)
		}
	}
	return err
}

func requireAffected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
