package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/mws-orders-client/pkg/metrics"
	"github.com/Sternrassler/mws-orders-client/pkg/mws"
)

// Prometheus metrics for quota tracking.
var (
	mwsQuotaRefusalsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "mws_quota_refusals_total",
		Help: "Calls refused locally because the hourly quota was exhausted",
	}, []string{"bucket"})

	mwsQuotaLowTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "mws_quota_low_total",
		Help: "Responses reporting a remaining hourly quota below the warning threshold",
	}, []string{"bucket"})
)

// LowFraction is the share of the hourly quota below which updates are
// logged as warnings.
const LowFraction = 0.1

// Redis hash fields of a stored quota state.
const (
	redisFieldMax       = "max"
	redisFieldRemaining = "remaining"
	redisFieldResetsOn  = "resets_on"
	redisFieldUpdated   = "updated"
)

// Tracker records quota headers and gates calls on them. The zero value is
// not usable; create trackers with NewTracker.
type Tracker struct {
	redis     *redis.Client
	keyPrefix string
	now       func() time.Time
	logger    zerolog.Logger

	mu    sync.Mutex
	local map[string]State
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRedis shares quota state through Redis.
func WithRedis(client *redis.Client) Option {
	return func(t *Tracker) {
		t.redis = client
	}
}

// WithKeyPrefix namespaces the Redis keys, typically per seller account.
func WithKeyPrefix(prefix string) Option {
	return func(t *Tracker) {
		t.keyPrefix = prefix
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates a tracker. Without WithRedis state is process-local.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		keyPrefix: "mws:quota:",
		now:       time.Now,
		logger:    zerolog.Nop(),
		local:     make(map[string]State),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Update records the quota headers of a response. Responses without quota
// headers are ignored.
func (t *Tracker) Update(ctx context.Context, bucket string, md mws.ResponseMetadata) error {
	if md.QuotaRemaining == nil || md.QuotaResetsOn == nil {
		return nil
	}

	state := State{
		Remaining: *md.QuotaRemaining,
		ResetsOn:  *md.QuotaResetsOn,
		UpdatedAt: t.now(),
	}
	if md.QuotaMax != nil {
		state.Max = *md.QuotaMax
	}

	if t.redis == nil {
		t.mu.Lock()
		t.local[bucket] = state
		t.mu.Unlock()
	} else if err := t.store(ctx, bucket, state); err != nil {
		return err
	}

	event := t.logger.Debug()
	if state.Max > 0 && state.Remaining < state.Max*LowFraction {
		mwsQuotaLowTotal.WithLabelValues(bucket).Inc()
		event = t.logger.Warn()
	}
	event.
		Str("bucket", bucket).
		Float64("remaining", state.Remaining).
		Float64("max", state.Max).
		Time("resets_on", state.ResetsOn).
		Msg("MWS quota state updated")
	return nil
}

func (t *Tracker) store(ctx context.Context, bucket string, state State) error {
	key := t.keyPrefix + bucket

	pipe := t.redis.TxPipeline()
	pipe.HSet(ctx, key,
		redisFieldMax, strconv.FormatFloat(state.Max, 'f', -1, 64),
		redisFieldRemaining, strconv.FormatFloat(state.Remaining, 'f', -1, 64),
		redisFieldResetsOn, state.ResetsOn.UnixMilli(),
		redisFieldUpdated, state.UpdatedAt.UnixMilli(),
	)
	pipe.PExpireAt(ctx, key, state.ResetsOn)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store quota state in redis: %w", err)
	}
	return nil
}

// State returns the last recorded quota of bucket. ok is false when nothing
// was recorded or the recorded quota has reset.
func (t *Tracker) State(ctx context.Context, bucket string) (State, bool, error) {
	var (
		state State
		ok    bool
	)
	if t.redis == nil {
		t.mu.Lock()
		state, ok = t.local[bucket]
		t.mu.Unlock()
	} else {
		var err error
		state, ok, err = t.load(ctx, bucket)
		if err != nil {
			return State{}, false, err
		}
	}

	if !ok || !t.now().Before(state.ResetsOn) {
		return State{}, false, nil
	}
	return state, true, nil
}

func (t *Tracker) load(ctx context.Context, bucket string) (State, bool, error) {
	vals, err := t.redis.HMGet(ctx, t.keyPrefix+bucket,
		redisFieldMax, redisFieldRemaining, redisFieldResetsOn, redisFieldUpdated).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return State{}, false, fmt.Errorf("get quota state: %w", err)
	}
	if len(vals) != 4 || vals[1] == nil || vals[2] == nil {
		return State{}, false, nil
	}

	fields := make([]float64, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, _ := v.(string)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return State{}, false, fmt.Errorf("parse quota state: %w", err)
		}
		fields[i] = f
	}

	return State{
		Max:       fields[0],
		Remaining: fields[1],
		ResetsOn:  time.UnixMilli(int64(fields[2])),
		UpdatedAt: time.UnixMilli(int64(fields[3])),
	}, true, nil
}

// Check refuses a call against bucket with an *ExhaustedError while the
// recorded quota is exhausted.
func (t *Tracker) Check(ctx context.Context, bucket string) error {
	state, ok, err := t.State(ctx, bucket)
	if err != nil {
		return err
	}
	now := t.now()
	if !ok || !state.Exhausted(now) {
		return nil
	}

	wait := state.TimeUntilReset(now)
	mwsQuotaRefusalsTotal.WithLabelValues(bucket).Inc()
	t.logger.Error().
		Str("bucket", bucket).
		Dur("wait", wait).
		Time("resets_on", state.ResetsOn).
		Msg("MWS hourly quota exhausted - refusing call")

	return &ExhaustedError{Bucket: bucket, ResetsOn: state.ResetsOn, Wait: wait}
}

// Reset forgets the recorded quota of bucket.
func (t *Tracker) Reset(ctx context.Context, bucket string) error {
	if t.redis == nil {
		t.mu.Lock()
		delete(t.local, bucket)
		t.mu.Unlock()
		return nil
	}
	if err := t.redis.Del(ctx, t.keyPrefix+bucket).Err(); err != nil {
		return fmt.Errorf("reset quota state: %w", err)
	}
	return nil
}
