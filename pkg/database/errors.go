package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a queried row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert or update violates a unique or
	// exclusion constraint (e.g. an overlapping booking interval).
	ErrConflict = errors.New("conflict")
)

// Postgres constraint-violation SQLSTATE codes.
const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
)

// WrapError translates driver errors into the package sentinels so callers
// do not depend on pgx. Unknown errors pass through unchanged.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeExclusionViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}
