package dbx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code for unique-constraint failures.
const uniqueViolation = "23505"

// UniqueConstraint returns the name of the violated unique constraint if err
// is a PostgreSQL unique-violation error, or "" otherwise. Repositories use it
// to translate constraint failures into typed domain errors.
func UniqueConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}
