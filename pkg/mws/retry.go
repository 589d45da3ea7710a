package mws

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/mws-orders-client/pkg/metrics"
)

// Prometheus metrics for retry operations.
var (
	mwsRetriesTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "mws_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	mwsRetryBackoffSeconds = promauto.With(metrics.Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mws_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.4, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	mwsRetryExhaustedTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "mws_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration: the initial
// request plus three retries backing off 400ms, 1.6s and 6.4s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       4,
		InitialBackoff:    400 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 4.0,
	}
}

// RetryConfigForErrorClass returns the retry configuration for an error
// class, keeping maxAttempts.
func RetryConfigForErrorClass(errorClass ErrorClass, maxAttempts int) RetryConfig {
	config := DefaultRetryConfig()
	config.MaxAttempts = maxAttempts

	if errorClass == ErrorClassThrottled {
		// Restore rates are slow, give the quota time to come back.
		config.InitialBackoff = 1 * time.Second
		config.MaxBackoff = 60 * time.Second
	}
	return config
}

// retryWithBackoff executes fn with exponential backoff until it succeeds,
// fails with a non-retryable class, or policy's attempts are used up.
// fn reports the class of each failure.
func retryWithBackoff(ctx context.Context, logger zerolog.Logger, policy func(ErrorClass) RetryConfig, fn func(attempt int) (ErrorClass, error)) error {
	var (
		lastErr   error
		lastClass ErrorClass
		attempts  int
	)

	for attempt := 1; ; attempt++ {
		attempts = attempt
		errorClass, err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("error_class", string(lastClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		lastClass = errorClass

		if !shouldRetry(errorClass) {
			return lastErr
		}

		config := policy(errorClass)
		if attempt >= config.MaxAttempts {
			break
		}

		mwsRetriesTotal.WithLabelValues(string(errorClass)).Inc()

		backoff := config.InitialBackoff
		for i := 1; i < attempt; i++ {
			backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
				break
			}
		}

		// ±20% jitter
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		mwsRetryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(jitter.Seconds())

		logger.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	mwsRetryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	logger.Warn().
		Str("error_class", string(lastClass)).
		Int("attempts", attempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}
