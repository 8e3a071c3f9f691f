// Package testutil starts the external services integration tests run against.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// RedisURLEnv names an optional Redis URL that replaces the container.
	RedisURLEnv = "VALIDATION_TEST_REDIS_URL"
	// RedisImage is the image started for Redis integration tests.
	RedisImage = "redis:7-alpine"
)

// SkipIfShort skips the test in -short mode.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// StartRedis returns the URL of a Redis instance for the test. It uses
// RedisURLEnv when set and otherwise runs a RedisImage container that is
// terminated on cleanup.
func StartRedis(t *testing.T) string {
	t.Helper()
	SkipIfShort(t)

	if url := os.Getenv(RedisURLEnv); url != "" {
		return url
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx,
		RedisImage,
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate redis container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}
	return url
}
