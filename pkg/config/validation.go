package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nimburion/validation-app/pkg/observability/logger"
)

var (
	validRouterTypes         = []string{"nethttp", "gin", "gorilla"}
	validCorrelationStrategy = []string{"timestamp", "uuid"}
	validRateLimitBackends   = []string{RateLimitBackendMemory, RateLimitBackendRedis}
)

// Validate normalizes enumerated values and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	c.RouterType = strings.ToLower(strings.TrimSpace(c.RouterType))
	if !contains(validRouterTypes, c.RouterType) {
		errs = append(errs, fmt.Errorf("invalid router_type: %s (must be one of: %v)", c.RouterType, validRouterTypes))
	}
	if strings.TrimSpace(c.Service.Name) == "" {
		errs = append(errs, errors.New("service.name is required"))
	}

	if !validPort(c.HTTP.Port) {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must be positive"))
	}
	if c.Management.Enabled {
		if !validPort(c.Management.Port) {
			errs = append(errs, fmt.Errorf("management.port must be between 1 and 65535, got %d", c.Management.Port))
		} else if c.Management.Port == c.HTTP.Port {
			errs = append(errs, errors.New("management.port must differ from http.port"))
		}
	}

	if strings.TrimSpace(c.Correlation.Header) == "" {
		errs = append(errs, errors.New("correlation.header is required"))
	}
	c.Correlation.Strategy = strings.ToLower(strings.TrimSpace(c.Correlation.Strategy))
	if c.Correlation.Strategy == "" {
		c.Correlation.Strategy = validCorrelationStrategy[0]
	}
	if !contains(validCorrelationStrategy, c.Correlation.Strategy) {
		errs = append(errs, fmt.Errorf("invalid correlation.strategy: %s (must be one of: %v)", c.Correlation.Strategy, validCorrelationStrategy))
	}

	if c.RateLimit.Enabled {
		c.RateLimit.Backend = strings.ToLower(strings.TrimSpace(c.RateLimit.Backend))
		if !contains(validRateLimitBackends, c.RateLimit.Backend) {
			errs = append(errs, fmt.Errorf("invalid rate_limit.backend: %s (must be one of: %v)", c.RateLimit.Backend, validRateLimitBackends))
		}
		if c.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, errors.New("rate_limit.requests_per_second must be greater than zero"))
		}
		if c.RateLimit.Burst < 0 {
			errs = append(errs, errors.New("rate_limit.burst cannot be negative"))
		}
		if c.RateLimit.Backend == RateLimitBackendRedis && strings.TrimSpace(c.RateLimit.Redis.URL) == "" {
			errs = append(errs, errors.New("rate_limit.redis.url is required when rate_limit.backend is redis"))
		}
	}

	if _, err := logger.ParseLogLevel(c.Observability.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("observability.log_level: %w", err))
	}
	if _, err := logger.ParseLogFormat(c.Observability.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("observability.log_format: %w", err))
	}
	if async := c.Observability.AsyncLogging; async.Enabled && (async.QueueSize <= 0 || async.Workers <= 0) {
		errs = append(errs, errors.New("observability.async_logging requires positive queue_size and workers"))
	}
	if c.Observability.TracingEnabled {
		if rate := c.Observability.TracingSampleRate; rate < 0 || rate > 1 {
			errs = append(errs, fmt.Errorf("observability.tracing_sample_rate must be between 0 and 1, got %v", rate))
		}
	}

	return errors.Join(errs...)
}

// SecretKeys lists settings masked by default when configuration is printed.
var SecretKeys = []string{"rate_limit.redis.url"}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
