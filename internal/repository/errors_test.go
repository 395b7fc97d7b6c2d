package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestTranslateMapsPostgresErrors(t *testing.T) {
	require.ErrorIs(t, translate(pgx.ErrNoRows), ErrNotFound)

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "tickets_number_key"}
	err := translate(fmt.Errorf("insert: %w", dup))
	require.ErrorIs(t, err, ErrConflict)
	require.ErrorContains(t, err, "tickets_number_key")

	require.ErrorIs(t, translate(&pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}), ErrInvalidReference)
	require.ErrorIs(t, translate(&pgconn.PgError{Code: "23503"}), ErrInvalidReference)

	other := errors.New("connection reset")
	require.Equal(t, other, translate(other))
	require.Nil(t, translate(nil))
}
