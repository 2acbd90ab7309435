package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code for unique-constraint breaches.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint breach. The
// pre-write existence guards fast-fail the common case, but the constraint
// is the final authority under concurrent identical requests.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
