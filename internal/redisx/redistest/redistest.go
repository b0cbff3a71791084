// Package redistest starts a throwaway Redis for tests.
package redistest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Start returns a client on a flushed database. AUCTION_TEST_REDIS_ADDR reuses
// a running server; otherwise a redis:7 container is started, and the test is
// skipped when Docker is not available.
func Start(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	addr := os.Getenv("AUCTION_TEST_REDIS_ADDR")
	if addr == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			t.Skipf("redis container unavailable: %v", err)
		}
		t.Cleanup(func() { _ = c.Terminate(context.Background()) })

		host, err := c.Host(ctx)
		if err != nil {
			t.Fatalf("redis host: %v", err)
		}
		port, err := c.MappedPort(ctx, "6379/tcp")
		if err != nil {
			t.Fatalf("redis port: %v", err)
		}
		addr = fmt.Sprintf("%s:%s", host, port.Port())
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return rdb
}
