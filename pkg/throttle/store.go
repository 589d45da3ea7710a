package throttle

import (
	"context"
	"sync"
	"time"
)

// TakeResult is the outcome of a single take attempt against a bucket.
type TakeResult struct {
	// Allowed is true when a token was deducted.
	Allowed bool

	// Wait is how long until a token is available. Zero when Allowed.
	Wait time.Duration

	// Remaining is the token count after the attempt.
	Remaining float64
}

// Store holds bucket state. Take must refill and deduct atomically so that
// concurrent callers never spend the same token twice.
type Store interface {
	// Take refills the bucket stored under key and deducts one token if a
	// whole token is available. A missing bucket starts full.
	Take(ctx context.Context, key string, limit Limit, now time.Time) (TakeResult, error)

	// Get returns the refilled bucket state without deducting.
	Get(ctx context.Context, key string, limit Limit, now time.Time) (BucketState, error)

	// Reset drops the bucket so the next access starts full.
	Reset(ctx context.Context, key string) error
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps buckets in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*BucketState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*BucketState),
	}
}

func (m *MemoryStore) bucket(key string, limit Limit, now time.Time) *BucketState {
	b, ok := m.buckets[key]
	if !ok {
		state := newBucketState(limit, now)
		b = &state
		m.buckets[key] = b
	}
	// Config may differ from the one the bucket was created with.
	b.Limit = limit
	if b.Tokens > float64(limit.MaxBurst) {
		b.Tokens = float64(limit.MaxBurst)
	}
	return b
}

// Take deducts one token from the bucket under key if one is available.
func (m *MemoryStore) Take(_ context.Context, key string, limit Limit, now time.Time) (TakeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.bucket(key, limit, now)
	wait, ok := b.take(now)
	return TakeResult{Allowed: ok, Wait: wait, Remaining: b.Tokens}, nil
}

// Get returns the refilled state of the bucket under key.
func (m *MemoryStore) Get(_ context.Context, key string, limit Limit, now time.Time) (BucketState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.bucket(key, limit, now)
	b.Refill(now)
	return *b, nil
}

// Reset removes the bucket under key.
func (m *MemoryStore) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets, key)
	return nil
}
