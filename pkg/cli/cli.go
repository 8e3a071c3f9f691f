// Package cli builds the validation-app command line: serve, version,
// healthcheck and config subcommands sharing one configuration loader.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/nimburion/validation-app/pkg/config"
	"github.com/nimburion/validation-app/pkg/observability/logger"
	"github.com/nimburion/validation-app/pkg/server"
	"github.com/nimburion/validation-app/pkg/version"
)

const redactedValue = "***"

// RunServerFunc runs the service until ctx is cancelled.
type RunServerFunc func(ctx context.Context, cfg *config.Config, log logger.Logger) error

// ServiceCommandOptions configures NewServiceCommand.
type ServiceCommandOptions struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	// RunServer overrides the default server startup, mainly for tests.
	RunServer RunServerFunc
}

// NewServiceCommand creates the root command. Running it without a
// subcommand is the same as "serve".
func NewServiceCommand(opts ServiceCommandOptions) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = config.DefaultEnvPrefix
	}
	if opts.RunServer == nil {
		opts.RunServer = RunServer
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config-file", "c", opts.ConfigPath, "config file path")
	config.RegisterFlags(rootCmd.PersistentFlags())

	loadConfig := func(flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
		return LoadConfigAndLogger(cfgPath, opts.EnvPrefix, flags)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current(opts.Name)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service:    %s\n", info.Service)
			fmt.Fprintf(out, "Version:    %s\n", info.Version)
			fmt.Fprintf(out, "Commit:     %s\n", info.Commit)
			fmt.Fprintf(out, "Build Time: %s\n", info.BuildTime)
			fmt.Fprintf(out, "Go:         %s\n", info.GoVersion)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			defer flushLogger(log)
			return opts.RunServer(cmd.Context(), cfg, log)
		},
	}
	rootCmd.AddCommand(serveCmd)
	rootCmd.RunE = serveCmd.RunE

	var healthURL string
	var healthTimeout time.Duration
	healthCmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check the running service's /health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := healthURL
			if url == "" {
				cfg, err := config.NewViperLoader(cfgPath, opts.EnvPrefix).WithFlags(cmd.Flags()).Load()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				url = fmt.Sprintf("http://127.0.0.1:%d/health", cfg.HTTP.Port)
			}
			if err := checkHealth(cmd.Context(), url, healthTimeout); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "healthy")
			return nil
		},
	}
	healthCmd.Flags().StringVar(&healthURL, "url", "", "health URL (defaults to the configured public port)")
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 3*time.Second, "request timeout")
	rootCmd.AddCommand(healthCmd)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.NewViperLoader(cfgPath, opts.EnvPrefix).WithFlags(cmd.Flags()).Load(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	})

	var showSecrets bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewViperLoader(cfgPath, opts.EnvPrefix).WithFlags(cmd.Flags())
			if _, err := loader.Load(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			settings := loader.AllSettings()
			if !showSecrets {
				settings = redactSettings(settings, config.SecretKeys)
			}
			formatted, err := formatSettings(settings)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatted)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
	configCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)

	return rootCmd
}

// LoadConfigAndLogger loads the configuration and builds the zap logger it
// describes, wrapped in the async logger when enabled.
func LoadConfigAndLogger(cfgPath, envPrefix string, flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
	cfg, err := config.NewViperLoader(cfgPath, envPrefix).WithFlags(flags).Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	zapLog, err := logger.NewZapLogger(logger.Config{
		Level:  logger.LogLevel(cfg.Observability.LogLevel),
		Format: logger.LogFormat(cfg.Observability.LogFormat),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	async := cfg.Observability.AsyncLogging
	log := logger.WrapAsync(zapLog, logger.AsyncConfig{
		Enabled:      async.Enabled,
		QueueSize:    async.QueueSize,
		WorkerCount:  async.Workers,
		DropWhenFull: async.DropWhenFull,
	})
	log.Debug("configuration loaded",
		"router_type", cfg.RouterType,
		"http_port", cfg.HTTP.Port,
		"management_enabled", cfg.Management.Enabled,
		"correlation_strategy", cfg.Correlation.Strategy,
	)
	return cfg, log, nil
}

// RunServer builds the public and management servers from cfg and runs them
// until ctx is cancelled.
func RunServer(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	opts := &server.RunHTTPServersOptions{Config: cfg, Logger: log}
	servers, err := server.BuildHTTPServers(ctx, opts)
	if err != nil {
		return fmt.Errorf("build servers: %w", err)
	}
	return server.RunHTTPServers(ctx, servers, opts)
}

// Execute runs cmd until SIGINT or SIGTERM and exits non-zero on error.
func Execute(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func flushLogger(log logger.Logger) {
	if async, ok := log.(*logger.AsyncLogger); ok {
		async.Close()
		return
	}
	if zapLog, ok := log.(*logger.ZapLogger); ok {
		_ = zapLog.Sync()
	}
}

func checkHealth(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service unhealthy: %s returned %d", url, resp.StatusCode)
	}
	return nil
}

func formatSettings(settings map[string]interface{}) (string, error) {
	if settings == nil {
		return "{}\n", nil
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

// redactSettings masks every non-empty value at the dotted keys in secrets.
// settings is not modified.
func redactSettings(settings map[string]interface{}, secrets []string) map[string]interface{} {
	out := copySettings(settings)
	for _, key := range secrets {
		redactPath(out, strings.Split(key, "."))
	}
	return out
}

func redactPath(settings map[string]interface{}, path []string) {
	value, ok := settings[path[0]]
	if !ok {
		return
	}
	if len(path) == 1 {
		if s, isString := value.(string); !isString || s != "" {
			settings[path[0]] = redactedValue
		}
		return
	}
	if child, isMap := value.(map[string]interface{}); isMap {
		redactPath(child, path[1:])
	}
}

func copySettings(settings map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(settings))
	for key, value := range settings {
		if child, ok := value.(map[string]interface{}); ok {
			out[key] = copySettings(child)
			continue
		}
		out[key] = value
	}
	return out
}
