package throttle

import (
	"testing"
	"time"
)

func TestLimit_Validate(t *testing.T) {
	tests := []struct {
		name    string
		limit   Limit
		wantErr bool
	}{
		{name: "valid", limit: Limit{MaxBurst: 6, RestoreRate: 0.015}},
		{name: "zero burst", limit: Limit{MaxBurst: 0, RestoreRate: 1}, wantErr: true},
		{name: "negative burst", limit: Limit{MaxBurst: -1, RestoreRate: 1}, wantErr: true},
		{name: "zero rate", limit: Limit{MaxBurst: 6, RestoreRate: 0}, wantErr: true},
		{name: "negative rate", limit: Limit{MaxBurst: 6, RestoreRate: -0.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.limit.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLimit_FullAfter(t *testing.T) {
	limit := Limit{MaxBurst: 6, RestoreRate: 0.015}
	got := limit.FullAfter()
	if diff := got - 400*time.Second; diff < -time.Millisecond || diff > time.Millisecond {
		t.Errorf("FullAfter() = %v, want 400s", got)
	}
}

func TestBucketState_Refill(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	limit := Limit{MaxBurst: 6, RestoreRate: 0.015}

	tests := []struct {
		name       string
		tokens     float64
		elapsed    time.Duration
		wantTokens float64
	}{
		{name: "no time passed", tokens: 2, elapsed: 0, wantTokens: 2},
		{name: "partial refill", tokens: 0, elapsed: 100 * time.Second, wantTokens: 1.5},
		{name: "capped at burst", tokens: 5, elapsed: time.Hour, wantTokens: 6},
		{name: "clock moved backwards", tokens: 3, elapsed: -time.Minute, wantTokens: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := BucketState{Tokens: tt.tokens, LastRefill: start, Limit: limit}
			s.Refill(start.Add(tt.elapsed))

			diff := s.Tokens - tt.wantTokens
			if diff < -1e-9 || diff > 1e-9 {
				t.Errorf("Tokens = %v, want %v", s.Tokens, tt.wantTokens)
			}
			if tt.elapsed < 0 && !s.LastRefill.Equal(start) {
				t.Errorf("LastRefill moved backwards to %v", s.LastRefill)
			}
		})
	}
}

func TestBucketState_TimeUntilToken(t *testing.T) {
	limit := Limit{MaxBurst: 6, RestoreRate: 0.5}

	tests := []struct {
		name     string
		tokens   float64
		expected time.Duration
	}{
		{name: "token available", tokens: 1, expected: 0},
		{name: "empty bucket", tokens: 0, expected: 2 * time.Second},
		{name: "half a token", tokens: 0.5, expected: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := BucketState{Tokens: tt.tokens, Limit: limit}
			if got := s.TimeUntilToken(); got != tt.expected {
				t.Errorf("TimeUntilToken() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBucketState_Take(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	s := newBucketState(Limit{MaxBurst: 2, RestoreRate: 1}, now)

	for i := 0; i < 2; i++ {
		if _, ok := s.take(now); !ok {
			t.Fatalf("take %d refused on a full bucket", i+1)
		}
	}

	wait, ok := s.take(now)
	if ok {
		t.Fatal("take succeeded on an empty bucket")
	}
	if wait != time.Second {
		t.Errorf("wait = %v, want 1s", wait)
	}
	if s.Tokens != 0 {
		t.Errorf("Tokens = %v after refused take, want 0", s.Tokens)
	}

	if _, ok := s.take(now.Add(time.Second)); !ok {
		t.Error("take refused after refill interval")
	}
}

func TestMethodConfig_Delegated(t *testing.T) {
	if OwnBucket(6, 0.015).Delegated() {
		t.Error("OwnBucket should not be delegated")
	}
	if !DelegatesTo("listOrders").Delegated() {
		t.Error("DelegatesTo should be delegated")
	}
}
