package mws

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrUnknownAction is returned for an action the client's schema does not describe.
	ErrUnknownAction = errors.New("unknown mws action")

	// ErrInvalidParam is returned when a parameter value does not fit its field.
	ErrInvalidParam = errors.New("invalid mws parameter")
)

// ErrorClass represents a classification of MWS call failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx sender errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassThrottled represents 503 RequestThrottled responses.
	ErrorClassThrottled ErrorClass = "throttled"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is an error reported by MWS in an ErrorResponse document, or a
// failed HTTP exchange when no document could be read.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Type       string
	Code       string
	Message    string
	RequestID  string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("MWS %s error (status %d)", e.ErrorClass, e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus categorizes a failed response.
func classifyStatus(statusCode int, code string) ErrorClass {
	switch {
	case code == "RequestThrottled" || code == "QuotaExceeded":
		return ErrorClassThrottled
	case statusCode == 503:
		return ErrorClassThrottled
	case statusCode >= 500:
		return ErrorClassServer
	case statusCode >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassThrottled, ErrorClassNetwork:
		return true
	default:
		// Sender errors will fail the same way again.
		return false
	}
}
