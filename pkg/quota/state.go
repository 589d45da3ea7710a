// Package quota tracks the hourly request quota MWS reports in the
// x-mws-quota-* response headers. State is kept per throttle bucket and can
// be shared across processes through Redis, so a process that starts after
// the quota ran out refuses calls instead of spending them on
// QuotaExceeded errors.
package quota

import (
	"errors"
	"fmt"
	"time"
)

// ErrQuotaExhausted is returned by Check while MWS reports no quota left.
var ErrQuotaExhausted = errors.New("mws hourly quota exhausted")

// State is the last quota MWS reported for a bucket.
type State struct {
	Max       float64   `json:"max"`
	Remaining float64   `json:"remaining"`
	ResetsOn  time.Time `json:"resets_on"`

	// UpdatedAt is when the headers were recorded.
	UpdatedAt time.Time `json:"updated_at"`
}

// Exhausted reports whether no calls are left before ResetsOn.
func (s State) Exhausted(now time.Time) bool {
	return s.Remaining < 1 && now.Before(s.ResetsOn)
}

// TimeUntilReset returns the duration until the quota resets, or 0 if the
// reset time has passed.
func (s State) TimeUntilReset(now time.Time) time.Duration {
	d := s.ResetsOn.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// ExhaustedError reports a refused call.
type ExhaustedError struct {
	Bucket   string
	ResetsOn time.Time
	Wait     time.Duration
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("mws hourly quota exhausted for %s: resets in %v at %s",
		e.Bucket, e.Wait.Round(time.Second), e.ResetsOn.UTC().Format(time.RFC3339))
}

// Unwrap lets callers match ErrQuotaExhausted with errors.Is.
func (e *ExhaustedError) Unwrap() error {
	return ErrQuotaExhausted
}
