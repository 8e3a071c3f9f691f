// Package config defines the service configuration and loads it from
// defaults, an optional YAML file, environment variables and flags.
package config

import "time"

// Config is the complete service configuration.
type Config struct {
	RouterType    string              `mapstructure:"router_type" yaml:"router_type"`
	Service       ServiceConfig       `mapstructure:"service" yaml:"service"`
	HTTP          HTTPConfig          `mapstructure:"http" yaml:"http"`
	Management    ManagementConfig    `mapstructure:"management" yaml:"management"`
	Correlation   CorrelationConfig   `mapstructure:"correlation" yaml:"correlation"`
	Mock          MockConfig          `mapstructure:"mock" yaml:"mock"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit" yaml:"rate_limit"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// HTTPConfig configures the public API server.
type HTTPConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ManagementConfig configures the management server serving /metrics and /ready.
type ManagementConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Port         int           `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// CorrelationConfig configures the request tagger.
type CorrelationConfig struct {
	Header     string `mapstructure:"header" yaml:"header"`
	Prefix     string `mapstructure:"prefix" yaml:"prefix"`
	Strategy   string `mapstructure:"strategy" yaml:"strategy"`
	EchoHeader bool   `mapstructure:"echo_header" yaml:"echo_header"`
}

// MockConfig configures the simulated dependency endpoints.
type MockConfig struct {
	BucketPrefix string `mapstructure:"bucket_prefix" yaml:"bucket_prefix"`
	// Seed makes draws reproducible when non-zero.
	Seed uint64 `mapstructure:"seed" yaml:"seed"`
}

// Rate limit backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// RateLimitConfig configures per-client rate limiting on the public API.
type RateLimitConfig struct {
	Enabled           bool                 `mapstructure:"enabled" yaml:"enabled"`
	Backend           string               `mapstructure:"backend" yaml:"backend"`
	RequestsPerSecond int                  `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int                  `mapstructure:"burst" yaml:"burst"`
	Redis             RateLimitRedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RateLimitRedisConfig configures the shared Redis counter backend.
type RateLimitRedisConfig struct {
	URL              string        `mapstructure:"url" yaml:"url"`
	Prefix           string        `mapstructure:"prefix" yaml:"prefix"`
	MaxConns         int           `mapstructure:"max_conns" yaml:"max_conns"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// ObservabilityConfig configures logging and tracing.
type ObservabilityConfig struct {
	LogLevel          string             `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string             `mapstructure:"log_format" yaml:"log_format"`
	AsyncLogging      AsyncLoggingConfig `mapstructure:"async_logging" yaml:"async_logging"`
	RequestLogging    bool               `mapstructure:"request_logging" yaml:"request_logging"`
	TracingEnabled    bool               `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	TracingEndpoint   string             `mapstructure:"tracing_endpoint" yaml:"tracing_endpoint"`
	TracingSampleRate float64            `mapstructure:"tracing_sample_rate" yaml:"tracing_sample_rate"`
}

// AsyncLoggingConfig configures the async logger wrapper.
type AsyncLoggingConfig struct {
	Enabled      bool `mapstructure:"enabled" yaml:"enabled"`
	QueueSize    int  `mapstructure:"queue_size" yaml:"queue_size"`
	Workers      int  `mapstructure:"workers" yaml:"workers"`
	DropWhenFull bool `mapstructure:"drop_when_full" yaml:"drop_when_full"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		RouterType: "nethttp",
		Service: ServiceConfig{
			Name:        "validation-app",
			Environment: "development",
		},
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Management: ManagementConfig{
			Enabled:      false,
			Port:         9090,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Correlation: CorrelationConfig{
			Header:     "correlation-id",
			Prefix:     "gen-",
			Strategy:   "timestamp",
			EchoHeader: true,
		},
		Mock: MockConfig{
			BucketPrefix: "my-bucket-",
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			Backend:           RateLimitBackendMemory,
			RequestsPerSecond: 100,
			Burst:             200,
			Redis: RateLimitRedisConfig{
				Prefix:           "validation-app:ratelimit",
				MaxConns:         10,
				OperationTimeout: time.Second,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			RequestLogging: true,
			AsyncLogging: AsyncLoggingConfig{
				QueueSize: 1024,
				Workers:   1,
			},
			TracingSampleRate: 1.0,
		},
	}
}
