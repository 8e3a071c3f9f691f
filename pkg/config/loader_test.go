package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestViperLoader_Defaults(t *testing.T) {
	cfg, err := NewViperLoader("", "").Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.RouterType != "nethttp" || cfg.HTTP.Port != 8080 {
		t.Errorf("unexpected defaults: router=%q port=%d", cfg.RouterType, cfg.HTTP.Port)
	}
	if cfg.Management.Enabled || cfg.Management.Port != 9090 {
		t.Errorf("management defaults: %+v", cfg.Management)
	}
	if cfg.Correlation.Header != "correlation-id" || cfg.Correlation.Prefix != "gen-" || cfg.Correlation.Strategy != "timestamp" {
		t.Errorf("correlation defaults: %+v", cfg.Correlation)
	}
	if !cfg.Correlation.EchoHeader {
		t.Error("echo_header should default to true")
	}
	if cfg.Mock.BucketPrefix != "my-bucket-" || cfg.Mock.Seed != 0 {
		t.Errorf("mock defaults: %+v", cfg.Mock)
	}
	if cfg.HTTP.ShutdownTimeout != 30*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.HTTP.ShutdownTimeout)
	}
}

func TestViperLoader_FileThenEnvPrecedence(t *testing.T) {
	path := writeConfigFile(t, `
router_type: gin
http:
  port: 8181
correlation:
  strategy: uuid
mock:
  bucket_prefix: test-bucket-
`)
	t.Setenv("VALIDATION_HTTP_PORT", "8282")
	t.Setenv("VALIDATION_MOCK_SEED", "42")
	t.Setenv("VALIDATION_HTTP_READ_TIMEOUT", "5s")

	cfg, err := NewViperLoader(path, "VALIDATION").Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.RouterType != "gin" {
		t.Errorf("router_type = %q, want gin from file", cfg.RouterType)
	}
	if cfg.HTTP.Port != 8282 {
		t.Errorf("http.port = %d, want env override 8282", cfg.HTTP.Port)
	}
	if cfg.Correlation.Strategy != "uuid" || cfg.Mock.BucketPrefix != "test-bucket-" {
		t.Errorf("file values not applied: %+v %+v", cfg.Correlation, cfg.Mock)
	}
	if cfg.Mock.Seed != 42 || cfg.HTTP.ReadTimeout != 5*time.Second {
		t.Errorf("env values not applied: seed=%d read_timeout=%v", cfg.Mock.Seed, cfg.HTTP.ReadTimeout)
	}
}

func TestViperLoader_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("VALIDATION_HTTP_PORT", "8282")
	t.Setenv("VALIDATION_ROUTER_TYPE", "gin")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	if err := flags.Parse([]string{"--port", "9000", "--log-level", "debug"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := NewViperLoader("", "VALIDATION").WithFlags(flags).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("http.port = %d, want flag value 9000", cfg.HTTP.Port)
	}
	if cfg.RouterType != "gin" {
		t.Errorf("unset flag must not override env, router_type = %q", cfg.RouterType)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.Observability.LogLevel)
	}
}

func TestViperLoader_MissingFile(t *testing.T) {
	_, err := NewViperLoader(filepath.Join(t.TempDir(), "missing.yaml"), "").Load()
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestViperLoader_InvalidConfigIsRejected(t *testing.T) {
	t.Setenv("VALIDATION_ROUTER_TYPE", "chi")
	_, err := NewViperLoader("", "VALIDATION").Load()
	if err == nil || !strings.Contains(err.Error(), "invalid router_type") {
		t.Fatalf("expected router_type error, got %v", err)
	}
}

func TestViperLoader_AllSettings(t *testing.T) {
	loader := NewViperLoader("", "")
	if len(loader.AllSettings()) != 0 {
		t.Fatal("expected no settings before Load")
	}
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	settings := loader.AllSettings()
	if settings["router_type"] != "nethttp" {
		t.Errorf("router_type setting = %v", settings["router_type"])
	}
	if _, ok := settings["correlation"].(map[string]interface{}); !ok {
		t.Errorf("expected nested correlation settings, got %T", settings["correlation"])
	}
}
