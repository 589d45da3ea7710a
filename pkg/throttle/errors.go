package throttle

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownMethod is returned when a method identifier has no configuration.
	ErrUnknownMethod = errors.New("unknown throttled method")

	// ErrInvalidConfig is returned by NewManager for unusable configuration.
	ErrInvalidConfig = errors.New("invalid throttle config")

	// ErrWaitExceeded is returned when admission would take longer than the
	// configured maximum wait.
	ErrWaitExceeded = errors.New("throttle wait exceeded")

	// ErrContextEnded is returned when the context ends while waiting for a token.
	ErrContextEnded = errors.New("throttle context ended")
)

// WaitExceededError describes an admission that was refused because the
// bucket would not yield a token within the maximum wait.
type WaitExceededError struct {
	Method  string
	Bucket  string
	Wait    time.Duration
	MaxWait time.Duration
}

// Error implements the error interface.
func (e *WaitExceededError) Error() string {
	return fmt.Sprintf("throttle: %s (bucket %s) needs %v, max wait is %v",
		e.Method, e.Bucket, e.Wait, e.MaxWait)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *WaitExceededError) Unwrap() error {
	return ErrWaitExceeded
}
