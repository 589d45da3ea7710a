//go:build integration

package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/mws-orders-client/internal/testutil"
	"github.com/Sternrassler/mws-orders-client/pkg/throttle"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}
	return host + ":" + port.Port()
}

// TestIntegration_PacksShareQuota runs two packs for the same seller against
// one Redis server: together they get one burst of listOrders calls.
func TestIntegration_PacksShareQuota(t *testing.T) {
	addr := setupRedis(t)

	mock := testutil.NewMockMWS()
	defer mock.Close()
	mock.SetResponse("ListOrders", orderPage("ListOrders", "A", "t1"))
	mock.SetResponse("ListOrdersByNextToken", orderPage("ListOrdersByNextToken", "B", ""))

	cfg := testConfig(mock.URL())
	cfg.Throttle.RedisAddr = addr
	cfg.Throttle.MaxWait = time.Second

	first := newTestPack(t, cfg, newFakeClock())
	second := newTestPack(t, cfg, newFakeClock())

	ctx := context.Background()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	for i := 0; i < 6; i++ {
		p := first
		if i%2 == 1 {
			p = second
		}
		var err error
		if i < 3 {
			_, err = p.ListOrdersByCreateDate(ctx, from, to)
		} else {
			_, err = p.ListOrdersByNextToken(ctx, "t1")
		}
		if err != nil {
			t.Fatalf("call %d error = %v", i+1, err)
		}
	}

	_, err := second.ListOrdersByCreateDate(ctx, from, to)
	if !errors.Is(err, throttle.ErrWaitExceeded) {
		t.Fatalf("7th call error = %v, want ErrWaitExceeded", err)
	}
	if got := mock.GetRequestCount(); got != 6 {
		t.Errorf("requests = %d, want 6", got)
	}

	// getOrder has its own bucket.
	if _, err := first.GetOrder(ctx, []string{"202-1"}); err != nil {
		t.Errorf("GetOrder() error = %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	keys, err := rdb.Keys(ctx, "mws:throttle:SELLER1:orders:*").Result()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("bucket keys = %v, want listOrders and getOrder", keys)
	}
}
