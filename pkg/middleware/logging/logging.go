// Package logging provides request logging middleware.
package logging

import (
	"strings"
	"time"

	"github.com/nimburion/validation-app/pkg/correlation"
	"github.com/nimburion/validation-app/pkg/observability/logger"
	"github.com/nimburion/validation-app/pkg/server/router"
)

// Mode defines logging verbosity for matching request paths.
type Mode string

const (
	// ModeOff disables request logging.
	ModeOff Mode = "off"
	// ModeMinimal logs only the completion line.
	ModeMinimal Mode = "minimal"
	// ModeFull logs start and completion lines.
	ModeFull Mode = "full"
)

// Log field names.
const (
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
	FieldError      = "error"
)

// Config configures request logging middleware behavior.
type Config struct {
	Enabled              bool
	LogStart             bool
	ExcludedPathPrefixes []string
	PathPolicies         []PathPolicy
}

// PathPolicy sets the logging mode for a path prefix. The longest matching
// prefix wins.
type PathPolicy struct {
	Prefix string
	Mode   Mode
}

// DefaultConfig returns default request logging behavior.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		LogStart: true,
	}
}

// Logging creates middleware with default configuration.
func Logging(log logger.Logger) router.MiddlewareFunc {
	return WithConfig(log, DefaultConfig())
}

// WithConfig creates middleware that logs each request through the logger
// bound to the request's correlation context.
func WithConfig(log logger.Logger, cfg Config) router.MiddlewareFunc {
	cfg = normalize(cfg)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			mode := cfg.modeForPath(req.URL.Path)
			if mode == ModeOff {
				return next(c)
			}

			start := time.Now()
			reqLog := log.WithContext(req.Context())
			base := requestFields(c)

			if cfg.LogStart && mode == ModeFull {
				reqLog.Info("request started", base...)
			}

			err := next(c)

			// The handler may have added fields after reqLog was bound.
			reqLog = log.WithContext(c.Request().Context())
			fields := append(base,
				FieldStatus, c.Response().Status(),
				FieldDurationMS, time.Since(start).Milliseconds(),
			)
			if err != nil {
				reqLog.Error("request failed", append(fields, FieldError, err)...)
				return err
			}
			reqLog.Info("request completed", fields...)
			return nil
		}
	}
}

// requestFields adds method and path only when the correlation context does
// not already carry them.
func requestFields(c router.Context) []any {
	req := c.Request()
	fields := make([]any, 0, 10)
	if correlation.Get(req.Context(), correlation.KeyMethod) == "" {
		fields = append(fields, FieldMethod, req.Method)
	}
	if correlation.Get(req.Context(), correlation.KeyPath) == "" {
		fields = append(fields, FieldPath, req.URL.Path)
	}
	return append(fields, FieldRemoteAddr, req.RemoteAddr)
}

func normalize(cfg Config) Config {
	policies := make([]PathPolicy, 0, len(cfg.PathPolicies))
	for _, policy := range cfg.PathPolicies {
		if strings.TrimSpace(policy.Prefix) == "" {
			continue
		}
		policy.Mode = ParseMode(string(policy.Mode))
		policies = append(policies, policy)
	}
	cfg.PathPolicies = policies
	return cfg
}

func (c Config) modeForPath(path string) Mode {
	if !c.Enabled {
		return ModeOff
	}
	for _, prefix := range c.ExcludedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return ModeOff
		}
	}

	bestLen := -1
	bestMode := ModeFull
	for _, policy := range c.PathPolicies {
		if strings.HasPrefix(path, policy.Prefix) && len(policy.Prefix) > bestLen {
			bestLen = len(policy.Prefix)
			bestMode = policy.Mode
		}
	}
	return bestMode
}

// ParseMode converts s into a Mode, defaulting to ModeFull.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOff:
		return ModeOff
	case ModeMinimal:
		return ModeMinimal
	default:
		return ModeFull
	}
}
