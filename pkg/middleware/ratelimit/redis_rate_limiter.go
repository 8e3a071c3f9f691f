package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimburion/validation-app/pkg/config"
	"github.com/nimburion/validation-app/pkg/observability/logger"
)

type redisClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisRateLimiter is a fixed-window counter shared by every replica
// through Redis. It fails open when Redis is unreachable.
type RedisRateLimiter struct {
	client    redisClient
	limit     int64
	window    time.Duration
	opTimeout time.Duration
	prefix    string
	log       logger.Logger
}

// NewRedisRateLimiter connects to Redis and verifies the connection.
func NewRedisRateLimiter(ctx context.Context, cfg config.RateLimitConfig, log logger.Logger) (*RedisRateLimiter, error) {
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis URL is required for distributed rate limiting")
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, errors.New("requests_per_second must be greater than zero")
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Redis.MaxConns > 0 {
		opts.PoolSize = cfg.Redis.MaxConns
	}
	timeout := cfg.Redis.OperationTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis rate limiter ping failed: %w", err)
	}

	log.Info("redis rate limiter connected",
		"limit", cfg.RequestsPerSecond,
		"burst", cfg.Burst,
		"prefix", cfg.Redis.Prefix,
	)
	return newRedisRateLimiter(client, cfg.RequestsPerSecond+cfg.Burst, time.Second, timeout, cfg.Redis.Prefix, log), nil
}

func newRedisRateLimiter(client redisClient, limit int, window, timeout time.Duration, prefix string, log logger.Logger) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{
		client:    client,
		limit:     int64(limit),
		window:    window,
		opTimeout: timeout,
		prefix:    prefix,
		log:       log,
	}
}

// Allow increments the key's counter for the current window.
func (r *RedisRateLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	redisKey := r.prefix + ":" + key
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		r.log.Error("redis rate limiter increment failed", "error", err)
		return true
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			r.log.Warn("redis rate limiter failed to set TTL", "error", err)
		}
	}
	return count <= r.limit
}

// Close closes the Redis client.
func (r *RedisRateLimiter) Close() error {
	return r.client.Close()
}

// HealthCheck pings Redis.
func (r *RedisRateLimiter) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
