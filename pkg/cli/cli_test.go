package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/nimburion/validation-app/pkg/config"
	"github.com/nimburion/validation-app/pkg/observability/logger"
)

func execute(t *testing.T, opts ServiceCommandOptions, args ...string) (string, error) {
	t.Helper()
	if opts.Name == "" {
		opts.Name = "validation-app"
	}
	cmd := NewServiceCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, ServiceCommandOptions{}, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Service:    validation-app", "Version:", "Commit:", "Build Time:", "Go:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}

func TestServeCommand_PassesFlagsAndLogger(t *testing.T) {
	var got *config.Config
	var gotLog logger.Logger
	run := func(ctx context.Context, cfg *config.Config, log logger.Logger) error {
		got, gotLog = cfg, log
		return nil
	}

	if _, err := execute(t, ServiceCommandOptions{RunServer: run}, "serve", "--port", "9191", "--router", "gin", "--mock-seed", "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || gotLog == nil {
		t.Fatal("expected RunServer to receive config and logger")
	}
	if got.HTTP.Port != 9191 || got.RouterType != "gin" || got.Mock.Seed != 7 {
		t.Errorf("flags not applied: port=%d router=%s seed=%d", got.HTTP.Port, got.RouterType, got.Mock.Seed)
	}
}

func TestRootCommand_DefaultsToServe(t *testing.T) {
	called := false
	run := func(context.Context, *config.Config, logger.Logger) error {
		called = true
		return nil
	}
	if _, err := execute(t, ServiceCommandOptions{RunServer: run}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected root command to run the server")
	}
}

func TestServeCommand_PropagatesErrors(t *testing.T) {
	boom := errors.New("listen failed")
	run := func(context.Context, *config.Config, logger.Logger) error { return boom }

	if _, err := execute(t, ServiceCommandOptions{RunServer: run}, "serve"); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestServeCommand_InvalidConfigStopsBeforeRun(t *testing.T) {
	t.Setenv("VALIDATION_ROUTER_TYPE", "chi")
	run := func(context.Context, *config.Config, logger.Logger) error {
		t.Fatal("server must not run with invalid config")
		return nil
	}
	_, err := execute(t, ServiceCommandOptions{RunServer: run}, "serve")
	if err == nil || !strings.Contains(err.Error(), "router_type") {
		t.Fatalf("expected router_type error, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	out, err := execute(t, ServiceCommandOptions{}, "config", "validate")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "configuration is valid") {
		t.Errorf("unexpected output %q", out)
	}

	path := writeConfig(t, "correlation:\n  strategy: sequence\n")
	_, err = execute(t, ServiceCommandOptions{}, "config", "validate", "--config-file", path)
	if err == nil || !strings.Contains(err.Error(), "correlation.strategy") {
		t.Fatalf("expected strategy error, got %v", err)
	}
}

func TestConfigShow_RedactsSecrets(t *testing.T) {
	path := writeConfig(t, `
rate_limit:
  enabled: true
  backend: redis
  redis:
    url: redis://:hunter2@localhost:6379/0
`)

	out, err := execute(t, ServiceCommandOptions{}, "config", "show", "-c", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("secret leaked:\n%s", out)
	}
	var settings map[string]interface{}
	if err := yaml.Unmarshal([]byte(out), &settings); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	redis := settings["rate_limit"].(map[string]interface{})["redis"].(map[string]interface{})
	if redis["url"] != redactedValue {
		t.Errorf("url = %v, want %s", redis["url"], redactedValue)
	}

	out, err = execute(t, ServiceCommandOptions{}, "config", "show", "-c", path, "--show-secrets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "hunter2") {
		t.Errorf("expected secret with --show-secrets:\n%s", out)
	}
}

func TestConfigShow_EnvOverrides(t *testing.T) {
	t.Setenv("VALIDATION_CORRELATION_STRATEGY", "uuid")
	out, err := execute(t, ServiceCommandOptions{}, "config", "show")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "strategy: uuid") {
		t.Errorf("env override missing:\n%s", out)
	}
}

func TestHealthcheckCommand(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	out, err := execute(t, ServiceCommandOptions{}, "healthcheck", "--url", healthy.URL)
	if err != nil || !strings.Contains(out, "healthy") {
		t.Fatalf("expected healthy, got %q %v", out, err)
	}
	if _, err := execute(t, ServiceCommandOptions{}, "healthcheck", "--url", unhealthy.URL); err == nil {
		t.Fatal("expected unhealthy error")
	}
}

func TestLoadConfigAndLogger_AsyncLogging(t *testing.T) {
	path := writeConfig(t, `
observability:
  async_logging:
    enabled: true
    queue_size: 16
    workers: 2
`)
	_, log, err := LoadConfigAndLogger(path, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	async, ok := log.(*logger.AsyncLogger)
	if !ok {
		t.Fatalf("expected *logger.AsyncLogger, got %T", log)
	}
	async.Close()

	_, log, err = LoadConfigAndLogger("", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := log.(*logger.ZapLogger); !ok {
		t.Fatalf("expected *logger.ZapLogger, got %T", log)
	}
}

func TestRedactSettings(t *testing.T) {
	settings := map[string]interface{}{
		"rate_limit": map[string]interface{}{
			"redis": map[string]interface{}{"url": "redis://secret", "prefix": "p"},
		},
		"empty": map[string]interface{}{"url": ""},
	}

	got := redactSettings(settings, []string{"rate_limit.redis.url", "empty.url", "missing.key"})

	redis := got["rate_limit"].(map[string]interface{})["redis"].(map[string]interface{})
	if redis["url"] != redactedValue || redis["prefix"] != "p" {
		t.Errorf("unexpected redaction %v", redis)
	}
	if got["empty"].(map[string]interface{})["url"] != "" {
		t.Error("empty values should stay empty")
	}
	input := settings["rate_limit"].(map[string]interface{})["redis"].(map[string]interface{})
	if input["url"] != "redis://secret" {
		t.Error("input settings were modified")
	}
}
