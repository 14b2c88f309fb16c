package repository

import (
	"errors"

	"github.com/lib/pq"
)

// isExclusionViolation reports whether the error is the room-overlap
// exclusion constraint firing (SQLSTATE 23P01). The constraint is the
// database-level backstop behind the in-transaction conflict checks.
func isExclusionViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23P01"
	}
	return false
}

// isUniqueViolation reports whether the error is a unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
