package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = apperrors.ErrNotFound

// ErrConflict is returned when a write collides with a unique key, such as a ticket number.
var ErrConflict = errors.New("unique key conflict")

// ErrInvalidReference is returned when a write names a malformed or unknown related id.
var ErrInvalidReference = errors.New("invalid reference")

// SQLSTATE codes mapped onto the sentinels above.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidTextRepr     = "22P02"
)

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation, pgInvalidTextRepr:
			return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.Message)
		}
	}
	return err
}
