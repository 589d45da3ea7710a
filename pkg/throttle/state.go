// Package throttle implements per-method token buckets for MWS API calls.
// Each method either owns a bucket (burst size plus restore rate) or charges
// its calls against another method's bucket, the way MWS bills pagination
// follow-ups against the operation that started the pagination.
package throttle

import (
	"fmt"
	"math"
	"time"
)

// Limit is the quota of a single bucket.
type Limit struct {
	// MaxBurst is the bucket capacity: how many calls may be made back to back.
	MaxBurst int `json:"max_burst"`

	// RestoreRate is the number of tokens regenerated per second.
	RestoreRate float64 `json:"restore_rate"`
}

// Validate reports whether the limit can back a bucket.
func (l Limit) Validate() error {
	if l.MaxBurst < 1 {
		return fmt.Errorf("max burst must be >= 1 (got %d)", l.MaxBurst)
	}
	if l.RestoreRate <= 0 || math.IsNaN(l.RestoreRate) || math.IsInf(l.RestoreRate, 0) {
		return fmt.Errorf("restore rate must be a positive number (got %v)", l.RestoreRate)
	}
	return nil
}

// FullAfter returns how long an empty bucket takes to refill completely.
func (l Limit) FullAfter() time.Duration {
	return time.Duration(float64(l.MaxBurst) / l.RestoreRate * float64(time.Second))
}

// MethodConfig describes how a method identifier is throttled. Exactly one of
// Limit and DelegatesTo is set; build values with OwnBucket or DelegatesTo.
type MethodConfig struct {
	Limit       *Limit
	DelegatesTo string
}

// OwnBucket configures a method with its own bucket.
func OwnBucket(maxBurst int, restoreRate float64) MethodConfig {
	return MethodConfig{Limit: &Limit{MaxBurst: maxBurst, RestoreRate: restoreRate}}
}

// DelegatesTo configures a method that consumes the quota of another method.
func DelegatesTo(method string) MethodConfig {
	return MethodConfig{DelegatesTo: method}
}

// Delegated reports whether the method borrows another method's bucket.
func (c MethodConfig) Delegated() bool {
	return c.Limit == nil
}

// Config maps method identifiers to their throttle configuration.
type Config map[string]MethodConfig

// BucketState is a point-in-time view of one bucket.
type BucketState struct {
	// Tokens currently available, always within [0, Limit.MaxBurst].
	Tokens float64 `json:"tokens"`

	// LastRefill is the instant Tokens was last brought up to date.
	LastRefill time.Time `json:"last_refill"`

	Limit Limit `json:"limit"`
}

// newBucketState returns a full bucket.
func newBucketState(limit Limit, now time.Time) BucketState {
	return BucketState{
		Tokens:     float64(limit.MaxBurst),
		LastRefill: now,
		Limit:      limit,
	}
}

// Refill credits the tokens regenerated since LastRefill. A clock that moved
// backwards credits nothing and leaves LastRefill untouched.
func (s *BucketState) Refill(now time.Time) {
	if !now.After(s.LastRefill) {
		return
	}
	elapsed := now.Sub(s.LastRefill).Seconds()
	s.Tokens = math.Min(float64(s.Limit.MaxBurst), s.Tokens+elapsed*s.Limit.RestoreRate)
	s.LastRefill = now
}

// IsDepleted returns true when no whole token is available.
func (s *BucketState) IsDepleted() bool {
	return s.Tokens < 1
}

// TimeUntilToken returns how long until one whole token is available.
// Returns 0 if a token is available now.
func (s *BucketState) TimeUntilToken() time.Duration {
	if !s.IsDepleted() {
		return 0
	}
	seconds := (1 - s.Tokens) / s.Limit.RestoreRate
	return time.Duration(math.Ceil(seconds * float64(time.Second)))
}

// take refills the bucket and deducts one token if one is available.
// It returns the wait until the next token when the bucket is depleted.
func (s *BucketState) take(now time.Time) (time.Duration, bool) {
	s.Refill(now)
	if s.IsDepleted() {
		return s.TimeUntilToken(), false
	}
	s.Tokens--
	return 0, true
}
