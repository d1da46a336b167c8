package dbx

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, optionally limited to the named constraints or indexes.
func IsUniqueViolation(err error, constraints ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	if len(constraints) == 0 {
		return true
	}
	for _, c := range constraints {
		if pgErr.ConstraintName == c {
			return true
		}
	}
	return false
}

// IsValidID reports whether id is a canonical UUID. Ids from request paths
// are checked before they reach a UUID column, where Postgres would reject
// them with an error instead of finding no rows.
func IsValidID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}
