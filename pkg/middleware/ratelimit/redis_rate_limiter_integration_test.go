package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nimburion/validation-app/pkg/config"
	"github.com/nimburion/validation-app/pkg/middleware/testutil"
	integration "github.com/nimburion/validation-app/pkg/testutil"
)

// TestRedisRateLimiter_Integration runs the fixed-window limiter against a
// real Redis started with testcontainers.
func TestRedisRateLimiter_Integration(t *testing.T) {
	url := integration.StartRedis(t)
	ctx := context.Background()

	newLimiter := func(t *testing.T) *RedisRateLimiter {
		t.Helper()
		limiter, err := NewRedisRateLimiter(ctx, config.RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             1,
			Redis: config.RateLimitRedisConfig{
				URL:              url,
				Prefix:           fmt.Sprintf("validation-app-test:%d", time.Now().UnixNano()),
				OperationTimeout: time.Second,
			},
		}, &testutil.MockLogger{})
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		t.Cleanup(func() { _ = limiter.Close() })
		return limiter
	}

	t.Run("HealthCheck", func(t *testing.T) {
		if err := newLimiter(t).HealthCheck(ctx); err != nil {
			t.Fatalf("health check: %v", err)
		}
	})

	t.Run("WindowLimit", func(t *testing.T) {
		limiter := newLimiter(t)
		allowed := 0
		for i := 0; i < 5; i++ {
			if limiter.Allow("203.0.113.9") {
				allowed++
			}
		}
		// A window boundary may fall inside the loop and admit more.
		if allowed < 3 {
			t.Errorf("allowed %d of 5 requests, want at least the window limit of 3", allowed)
		}
		if allowed == 5 {
			t.Error("expected the window limit to reject at least one request")
		}
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		limiter := newLimiter(t)
		for i := 0; i < 5; i++ {
			limiter.Allow("203.0.113.10")
		}
		if !limiter.Allow("203.0.113.11") {
			t.Error("a fresh client must be admitted")
		}
	})

	t.Run("WindowExpires", func(t *testing.T) {
		limiter := newLimiter(t)
		for i := 0; i < 5; i++ {
			limiter.Allow("203.0.113.12")
		}
		time.Sleep(1500 * time.Millisecond)
		if !limiter.Allow("203.0.113.12") {
			t.Error("expected the counter to reset once its TTL elapsed")
		}
	})
}
