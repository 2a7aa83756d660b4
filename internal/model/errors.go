package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrClaimConflict is returned when a conditional status update finds the
// record no longer in the expected state: another run already claimed it.
var ErrClaimConflict = errors.New("job already claimed by another run")

// ErrNotFound is returned for lookups of absent records.
var ErrNotFound = errors.New("record not found")

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
