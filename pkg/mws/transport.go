package mws

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	// errMustNotBeZero rejects a rate cap without requests per second or burst.
	errMustNotBeZero = errors.New("must be greater than zero")

	// errWaitingFailed wraps a limiter wait that failed for a reason other
	// than the request context ending.
	errWaitingFailed = errors.New("limiter waiting failed")

	// errTransportContextEnded is returned when the request context ends
	// before or while waiting for the rate cap.
	errTransportContextEnded = errors.New("transport context ended")
)

// rateLimitedTransport is an http.RoundTripper capping the overall request
// rate of a client, independent of per-action throttling.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	rps     float64
	burst   int
	next    http.RoundTripper
	logger  zerolog.Logger
}

// newRateLimitedTransport wraps next with a token bucket of rps and burst.
func newRateLimitedTransport(rps float64, burst int, logger zerolog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%g] and burst[%d] %w", rps, burst, errMustNotBeZero)
	}
	if next == nil {
		next = http.DefaultTransport
	}

	return &rateLimitedTransport{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		next:    next,
		logger:  logger,
	}, nil
}

func (t *rateLimitedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", errTransportContextEnded, err)
	}

	if !t.limiter.Allow() {
		start := time.Now()
		t.logger.Debug().
			Float64("rate", t.rps).
			Int("burst", t.burst).
			Str("path", r.URL.Path).
			Msg("Transport tokens exhausted")

		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", errWaitingFailed, err)
		}

		t.logger.Debug().Dur("waited", time.Since(start)).Msg("Transport wait complete")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w post-wait: %w", errTransportContextEnded, err)
	}

	return t.next.RoundTrip(r)
}

// userAgent sets a persistent User-Agent header on every request.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
