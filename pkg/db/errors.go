package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err came from a unique index. An empty
// constraint matches any unique index.
func IsUniqueViolation(err error, constraint string) bool {
	return matchSQLState(err, sqlStateUniqueViolation, constraint, "duplicate key value", "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err came from a foreign key check.
func IsForeignKeyViolation(err error, constraint string) bool {
	return matchSQLState(err, sqlStateForeignKeyViolation, constraint, "violates foreign key constraint", "FOREIGN KEY constraint failed")
}

// matchSQLState checks pgx and lib/pq errors by SQLSTATE and falls back to
// message matching for sqlite, which carries no code.
func matchSQLState(err error, state, constraint string, fallbacks ...string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == state && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == state && (constraint == "" || pqErr.Constraint == constraint)
	}

	msg := err.Error()
	if constraint != "" {
		return strings.Contains(msg, constraint)
	}
	for _, f := range fallbacks {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}
