package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a Postgres unique violation.
// When constraint is non-empty the violation must reference that constraint,
// which lets callers distinguish the partial unique indexes on invitations
// and memberships from any other collision.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		if pgxErr.Code != uniqueViolationCode {
			return false
		}
		return constraint == "" || pgxErr.ConstraintName == constraint
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) != uniqueViolationCode {
			return false
		}
		return constraint == "" || pqErr.Constraint == constraint
	}

	// Drivers that flatten the pg error into text.
	msg := err.Error()
	if constraint != "" {
		return strings.Contains(msg, constraint)
	}
	return strings.Contains(msg, "duplicate key value")
}
