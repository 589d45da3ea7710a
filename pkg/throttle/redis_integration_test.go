//go:build integration

package throttle

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisStore_Integration_SharedBucket(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	m, err := NewManager(Config{
		"listOrders":            OwnBucket(6, 0.015),
		"listOrdersByNextToken": DelegatesTo("listOrders"),
	}, WithStore(NewRedisStore(redisClient)), WithLogger(logger), WithKeyPrefix("it:"))
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		method := "listOrders"
		if i%2 == 1 {
			method = "listOrdersByNextToken"
		}
		ok, _, err := m.TryAdmit(ctx, method)
		if err != nil {
			t.Fatalf("TryAdmit() error = %v", err)
		}
		if !ok {
			t.Fatalf("admission %d refused within burst", i+1)
		}
	}

	ok, wait, err := m.TryAdmit(ctx, "listOrders")
	if err != nil {
		t.Fatalf("TryAdmit() error = %v", err)
	}
	if ok {
		t.Fatal("7th admission allowed")
	}
	if wait <= 0 {
		t.Errorf("wait = %v, want positive", wait)
	}

	ttl, err := redisClient.TTL(ctx, "it:listOrders").Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 {
		t.Errorf("bucket TTL = %v, want expiring key", ttl)
	}
}

func TestRedisStore_Integration_MaxWait(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	m, err := NewManager(Config{"getOrder": OwnBucket(1, 0.015)},
		WithStore(NewRedisStore(redisClient)),
		WithLogger(logger),
		WithMaxWait(time.Second),
	)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	ctx := context.Background()

	if err := m.Admit(ctx, "getOrder"); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	start := time.Now()
	err = m.Admit(ctx, "getOrder")
	if !errors.Is(err, ErrWaitExceeded) {
		t.Errorf("Admit() error = %v, want ErrWaitExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Admit() took %v, want an immediate refusal", elapsed)
	}
}
