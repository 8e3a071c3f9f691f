package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment variable the loader reads.
const DefaultEnvPrefix = "VALIDATION"

// Loader loads and validates configuration.
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader with precedence flags > env > file > defaults.
type ViperLoader struct {
	configFile string
	envPrefix  string
	flags      *pflag.FlagSet
	v          *viper.Viper
}

// NewViperLoader creates a loader. configFile may be empty.
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// WithFlags binds the flags registered by RegisterFlags.
func (l *ViperLoader) WithFlags(flags *pflag.FlagSet) *ViperLoader {
	l.flags = flags
	return l
}

// ConfigFile returns the configured file path, or "".
func (l *ViperLoader) ConfigFile() string {
	return l.configFile
}

// Load reads and validates the configuration.
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()
	l.setDefaults(v, DefaultConfig())

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	if err := l.bindEnvVars(v); err != nil {
		return nil, err
	}
	if err := l.bindFlags(v); err != nil {
		return nil, err
	}
	l.v = v

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate normalizes and checks cfg.
func (l *ViperLoader) Validate(cfg *Config) error {
	return cfg.Validate()
}

// AllSettings returns the merged settings of the last Load.
func (l *ViperLoader) AllSettings() map[string]interface{} {
	if l.v == nil {
		return map[string]interface{}{}
	}
	return l.v.AllSettings()
}

// envBindings maps configuration keys to environment variable suffixes.
var envBindings = []struct {
	key  string
	envs []string
}{
	{"router_type", []string{"ROUTER_TYPE"}},
	{"service.name", []string{"SERVICE_NAME"}},
	{"service.environment", []string{"SERVICE_ENVIRONMENT", "ENVIRONMENT"}},

	{"http.port", []string{"HTTP_PORT", "PORT"}},
	{"http.read_timeout", []string{"HTTP_READ_TIMEOUT"}},
	{"http.write_timeout", []string{"HTTP_WRITE_TIMEOUT"}},
	{"http.idle_timeout", []string{"HTTP_IDLE_TIMEOUT"}},
	{"http.shutdown_timeout", []string{"HTTP_SHUTDOWN_TIMEOUT"}},

	{"management.enabled", []string{"MGMT_ENABLED"}},
	{"management.port", []string{"MGMT_PORT"}},
	{"management.read_timeout", []string{"MGMT_READ_TIMEOUT"}},
	{"management.write_timeout", []string{"MGMT_WRITE_TIMEOUT"}},

	{"correlation.header", []string{"CORRELATION_HEADER"}},
	{"correlation.prefix", []string{"CORRELATION_PREFIX"}},
	{"correlation.strategy", []string{"CORRELATION_STRATEGY"}},
	{"correlation.echo_header", []string{"CORRELATION_ECHO_HEADER"}},

	{"mock.bucket_prefix", []string{"MOCK_BUCKET_PREFIX"}},
	{"mock.seed", []string{"MOCK_SEED"}},

	{"rate_limit.enabled", []string{"RATE_LIMIT_ENABLED"}},
	{"rate_limit.backend", []string{"RATE_LIMIT_BACKEND"}},
	{"rate_limit.requests_per_second", []string{"RATE_LIMIT_REQUESTS_PER_SECOND"}},
	{"rate_limit.burst", []string{"RATE_LIMIT_BURST"}},
	{"rate_limit.redis.url", []string{"RATE_LIMIT_REDIS_URL"}},
	{"rate_limit.redis.prefix", []string{"RATE_LIMIT_REDIS_PREFIX"}},
	{"rate_limit.redis.max_conns", []string{"RATE_LIMIT_REDIS_MAX_CONNS"}},
	{"rate_limit.redis.operation_timeout", []string{"RATE_LIMIT_REDIS_OPERATION_TIMEOUT"}},

	{"observability.log_level", []string{"LOG_LEVEL"}},
	{"observability.log_format", []string{"LOG_FORMAT"}},
	{"observability.request_logging", []string{"REQUEST_LOGGING"}},
	{"observability.async_logging.enabled", []string{"ASYNC_LOGGING_ENABLED"}},
	{"observability.async_logging.queue_size", []string{"ASYNC_LOGGING_QUEUE_SIZE"}},
	{"observability.async_logging.workers", []string{"ASYNC_LOGGING_WORKERS"}},
	{"observability.async_logging.drop_when_full", []string{"ASYNC_LOGGING_DROP_WHEN_FULL"}},
	{"observability.tracing_enabled", []string{"TRACING_ENABLED"}},
	{"observability.tracing_endpoint", []string{"TRACING_ENDPOINT"}},
	{"observability.tracing_sample_rate", []string{"TRACING_SAMPLE_RATE"}},
}

func (l *ViperLoader) bindEnvVars(v *viper.Viper) error {
	for _, binding := range envBindings {
		args := make([]string, 0, len(binding.envs)+1)
		args = append(args, binding.key)
		for _, env := range binding.envs {
			args = append(args, l.prefixedEnv(env))
		}
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind env for %s: %w", binding.key, err)
		}
	}
	return nil
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	prefix := strings.TrimSpace(l.envPrefix)
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return strings.ToUpper(prefix) + "_" + suffix
}

func (l *ViperLoader) setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("router_type", cfg.RouterType)
	v.SetDefault("service.name", cfg.Service.Name)
	v.SetDefault("service.environment", cfg.Service.Environment)

	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("http.read_timeout", cfg.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", cfg.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", cfg.HTTP.IdleTimeout)
	v.SetDefault("http.shutdown_timeout", cfg.HTTP.ShutdownTimeout)

	v.SetDefault("management.enabled", cfg.Management.Enabled)
	v.SetDefault("management.port", cfg.Management.Port)
	v.SetDefault("management.read_timeout", cfg.Management.ReadTimeout)
	v.SetDefault("management.write_timeout", cfg.Management.WriteTimeout)

	v.SetDefault("correlation.header", cfg.Correlation.Header)
	v.SetDefault("correlation.prefix", cfg.Correlation.Prefix)
	v.SetDefault("correlation.strategy", cfg.Correlation.Strategy)
	v.SetDefault("correlation.echo_header", cfg.Correlation.EchoHeader)

	v.SetDefault("mock.bucket_prefix", cfg.Mock.BucketPrefix)
	v.SetDefault("mock.seed", cfg.Mock.Seed)

	v.SetDefault("rate_limit.enabled", cfg.RateLimit.Enabled)
	v.SetDefault("rate_limit.backend", cfg.RateLimit.Backend)
	v.SetDefault("rate_limit.requests_per_second", cfg.RateLimit.RequestsPerSecond)
	v.SetDefault("rate_limit.burst", cfg.RateLimit.Burst)
	v.SetDefault("rate_limit.redis.url", cfg.RateLimit.Redis.URL)
	v.SetDefault("rate_limit.redis.prefix", cfg.RateLimit.Redis.Prefix)
	v.SetDefault("rate_limit.redis.max_conns", cfg.RateLimit.Redis.MaxConns)
	v.SetDefault("rate_limit.redis.operation_timeout", cfg.RateLimit.Redis.OperationTimeout)

	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_format", cfg.Observability.LogFormat)
	v.SetDefault("observability.request_logging", cfg.Observability.RequestLogging)
	v.SetDefault("observability.async_logging.enabled", cfg.Observability.AsyncLogging.Enabled)
	v.SetDefault("observability.async_logging.queue_size", cfg.Observability.AsyncLogging.QueueSize)
	v.SetDefault("observability.async_logging.workers", cfg.Observability.AsyncLogging.Workers)
	v.SetDefault("observability.async_logging.drop_when_full", cfg.Observability.AsyncLogging.DropWhenFull)
	v.SetDefault("observability.tracing_enabled", cfg.Observability.TracingEnabled)
	v.SetDefault("observability.tracing_endpoint", cfg.Observability.TracingEndpoint)
	v.SetDefault("observability.tracing_sample_rate", cfg.Observability.TracingSampleRate)
}
