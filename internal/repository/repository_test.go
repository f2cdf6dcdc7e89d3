package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: uniqueViolation}), ErrDuplicate)

	tooLong := mapError(&pgconn.PgError{Code: stringDataRightTruncation, Message: "value too long for type character varying(200)"})
	assert.ErrorIs(t, tooLong, ErrValueTooLong)
	assert.Contains(t, tooLong.Error(), "character varying(200)")

	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other))
}
