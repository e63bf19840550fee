package store

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist or is not visible to the caller.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique constraint.
var ErrConflict = errors.New("conflict")

const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// now returns the current time at the precision PostgreSQL stores.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
