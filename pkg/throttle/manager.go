package throttle

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/mws-orders-client/pkg/metrics"
)

// Prometheus metrics for throttle admission.
var (
	mwsThrottleAdmissionsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "mws_throttle_admissions_total",
		Help: "Total throttle admission decisions by method, bucket and outcome",
	}, []string{"method", "bucket", "outcome"})

	mwsThrottleWaitSeconds = promauto.With(metrics.Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mws_throttle_wait_seconds",
		Help:    "Time spent waiting for a throttle token by bucket",
		Buckets: []float64{0.1, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"bucket"})

	mwsThrottleTokens = promauto.With(metrics.Registry).NewGaugeVec(prometheus.GaugeOpts{
		Name: "mws_throttle_tokens",
		Help: "Tokens left in a throttle bucket after the last take",
	}, []string{"bucket"})
)

// Admission outcomes used as metric labels.
const (
	outcomeAdmitted     = "admitted"
	outcomeWaited       = "waited"
	outcomeDenied       = "denied"
	outcomeWaitExceeded = "wait_exceeded"
	outcomeCancelled    = "cancelled"
)

// Sleeper blocks for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// resolved is a method after delegation has been followed.
type resolved struct {
	bucket string
	limit  Limit
}

// Manager admits calls per method identifier against token buckets.
type Manager struct {
	methods   map[string]resolved
	store     Store
	now       func() time.Time
	sleep     Sleeper
	maxWait   time.Duration
	keyPrefix string
	logger    zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets the bucket store. The default is a fresh MemoryStore.
func WithStore(s Store) Option {
	return func(m *Manager) {
		if s != nil {
			m.store = s
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSleeper sets how the manager waits for tokens.
func WithSleeper(s Sleeper) Option {
	return func(m *Manager) {
		if s != nil {
			m.sleep = s
		}
	}
}

// WithMaxWait bounds the total time Admit may wait. Zero means unbounded.
func WithMaxWait(d time.Duration) Option {
	return func(m *Manager) {
		m.maxWait = d
	}
}

// WithKeyPrefix namespaces bucket keys in the store.
func WithKeyPrefix(prefix string) Option {
	return func(m *Manager) {
		m.keyPrefix = prefix
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager for the given method configuration.
// Delegation may only point at a method that owns its bucket.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if len(cfg) == 0 {
		return nil, fmt.Errorf("%w: no methods configured", ErrInvalidConfig)
	}

	methods := make(map[string]resolved, len(cfg))
	for method, mc := range cfg {
		if !mc.Delegated() {
			if err := mc.Limit.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, method, err)
			}
			methods[method] = resolved{bucket: method, limit: *mc.Limit}
			continue
		}

		target, ok := cfg[mc.DelegatesTo]
		switch {
		case mc.DelegatesTo == "":
			return nil, fmt.Errorf("%w: %s has neither a limit nor a delegate", ErrInvalidConfig, method)
		case !ok:
			return nil, fmt.Errorf("%w: %s delegates to unknown method %s", ErrInvalidConfig, method, mc.DelegatesTo)
		case target.Delegated():
			return nil, fmt.Errorf("%w: %s delegates to %s, which delegates itself", ErrInvalidConfig, method, mc.DelegatesTo)
		}
		if err := target.Limit.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, mc.DelegatesTo, err)
		}
		methods[method] = resolved{bucket: mc.DelegatesTo, limit: *target.Limit}
	}

	m := &Manager{
		methods: methods,
		store:   NewMemoryStore(),
		now:     time.Now,
		sleep:   sleepContext,
		logger:  log.With().Str("component", "throttle").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Methods returns the configured method identifiers, sorted.
func (m *Manager) Methods() []string {
	out := make([]string, 0, len(m.methods))
	for method := range m.methods {
		out = append(out, method)
	}
	sort.Strings(out)
	return out
}

// Bucket returns the bucket a method is charged against.
func (m *Manager) Bucket(method string) (string, Limit, error) {
	r, ok := m.methods[method]
	if !ok {
		return "", Limit{}, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	return r.bucket, r.limit, nil
}

func (m *Manager) key(bucket string) string {
	return m.keyPrefix + bucket
}

// TryAdmit takes a token for method if one is available without waiting.
// When the bucket is depleted it returns false and the time until a token exists.
func (m *Manager) TryAdmit(ctx context.Context, method string) (bool, time.Duration, error) {
	r, ok := m.methods[method]
	if !ok {
		return false, 0, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}

	res, err := m.store.Take(ctx, m.key(r.bucket), r.limit, m.now())
	if err != nil {
		return false, 0, fmt.Errorf("take token for %s: %w", r.bucket, err)
	}
	mwsThrottleTokens.WithLabelValues(r.bucket).Set(res.Remaining)

	if !res.Allowed {
		mwsThrottleAdmissionsTotal.WithLabelValues(method, r.bucket, outcomeDenied).Inc()
		return false, res.Wait, nil
	}
	mwsThrottleAdmissionsTotal.WithLabelValues(method, r.bucket, outcomeAdmitted).Inc()
	return true, 0, nil
}

// Admit blocks until a token for method's bucket is available and takes it.
// It fails with a *WaitExceededError when the max wait would be exceeded and
// with ErrContextEnded when ctx ends first.
func (m *Manager) Admit(ctx context.Context, method string) error {
	r, ok := m.methods[method]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}

	var waited time.Duration
	for {
		if err := ctx.Err(); err != nil {
			mwsThrottleAdmissionsTotal.WithLabelValues(method, r.bucket, outcomeCancelled).Inc()
			return fmt.Errorf("%w: %w", ErrContextEnded, err)
		}

		res, err := m.store.Take(ctx, m.key(r.bucket), r.limit, m.now())
		if err != nil {
			return fmt.Errorf("take token for %s: %w", r.bucket, err)
		}
		mwsThrottleTokens.WithLabelValues(r.bucket).Set(res.Remaining)

		if res.Allowed {
			outcome := outcomeAdmitted
			if waited > 0 {
				outcome = outcomeWaited
				mwsThrottleWaitSeconds.WithLabelValues(r.bucket).Observe(waited.Seconds())
				m.logger.Info().
					Str("method", method).
					Str("bucket", r.bucket).
					Dur("waited", waited).
					Msg("Throttle wait complete")
			}
			mwsThrottleAdmissionsTotal.WithLabelValues(method, r.bucket, outcome).Inc()
			m.logger.Debug().
				Str("method", method).
				Str("bucket", r.bucket).
				Float64("tokens_remaining", res.Remaining).
				Msg("Call admitted")
			return nil
		}

		if m.maxWait > 0 && waited+res.Wait > m.maxWait {
			mwsThrottleAdmissionsTotal.WithLabelValues(method, r.bucket, outcomeWaitExceeded).Inc()
			m.logger.Warn().
				Str("method", method).
				Str("bucket", r.bucket).
				Dur("wait", waited+res.Wait).
				Dur("max_wait", m.maxWait).
				Msg("Throttle wait would exceed limit")
			return &WaitExceededError{
				Method:  method,
				Bucket:  r.bucket,
				Wait:    waited + res.Wait,
				MaxWait: m.maxWait,
			}
		}

		m.logger.Warn().
			Str("method", method).
			Str("bucket", r.bucket).
			Dur("wait", res.Wait).
			Msg("Throttle bucket depleted - waiting for token")

		if err := m.sleep(ctx, res.Wait); err != nil {
			mwsThrottleAdmissionsTotal.WithLabelValues(method, r.bucket, outcomeCancelled).Inc()
			return fmt.Errorf("%w: %w", ErrContextEnded, err)
		}
		waited += res.Wait
	}
}

// State returns the current state of the bucket method is charged against.
func (m *Manager) State(ctx context.Context, method string) (BucketState, error) {
	r, ok := m.methods[method]
	if !ok {
		return BucketState{}, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	state, err := m.store.Get(ctx, m.key(r.bucket), r.limit, m.now())
	if err != nil {
		return BucketState{}, fmt.Errorf("get bucket %s: %w", r.bucket, err)
	}
	return state, nil
}

// Reset refills the bucket method is charged against.
func (m *Manager) Reset(ctx context.Context, method string) error {
	r, ok := m.methods[method]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	if err := m.store.Reset(ctx, m.key(r.bucket)); err != nil {
		return fmt.Errorf("reset bucket %s: %w", r.bucket, err)
	}
	m.logger.Info().Str("bucket", r.bucket).Msg("Throttle bucket reset")
	return nil
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
