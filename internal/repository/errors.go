package repository

import (
	"errors"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

// IsUniqueViolation reports a duplicate key, e.g. a reused idempotency key.
func IsUniqueViolation(err error) bool {
	return hasCode(err, pqUniqueViolation)
}

// IsCheckViolation reports a CHECK constraint failure, such as the
// available-seats range on rides.
func IsCheckViolation(err error) bool {
	return hasCode(err, pqCheckViolation)
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == code
	}
	return false
}
