package logging

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nimburion/validation-app/pkg/correlation"
	correlationmw "github.com/nimburion/validation-app/pkg/middleware/correlation"
	"github.com/nimburion/validation-app/pkg/middleware/testutil"
	"github.com/nimburion/validation-app/pkg/server/router"
	"github.com/nimburion/validation-app/pkg/server/router/nethttp"
)

func TestLogging_RequestStartAndCompletion(t *testing.T) {
	mock := &testutil.MockLogger{}

	r := nethttp.NewRouter()
	r.Use(Logging(mock))
	r.GET("/test", func(c router.Context) error {
		return c.String(http.StatusOK, "success")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	r.ServeHTTP(httptest.NewRecorder(), req)

	logs := mock.Entries()
	if len(logs) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(logs))
	}

	start := logs[0]
	if start.Msg != "request started" {
		t.Errorf("expected message 'request started', got %q", start.Msg)
	}
	if start.Fields[FieldMethod] != "GET" || start.Fields[FieldPath] != "/test" {
		t.Errorf("unexpected start fields: %v", start.Fields)
	}
	if start.Fields[FieldRemoteAddr] != "192.168.1.1:12345" {
		t.Errorf("expected remote_addr, got %v", start.Fields[FieldRemoteAddr])
	}
	if _, ok := start.Fields[FieldStatus]; ok {
		t.Error("start line must not carry status")
	}

	done := logs[1]
	if done.Msg != "request completed" || done.Level != "info" {
		t.Errorf("unexpected completion entry: %+v", done)
	}
	if done.Fields[FieldStatus] != http.StatusOK {
		t.Errorf("expected status 200, got %v", done.Fields[FieldStatus])
	}
	if _, ok := done.Fields[FieldDurationMS]; !ok {
		t.Error("expected duration_ms field in completed log")
	}
}

func TestLogging_RequestFailure(t *testing.T) {
	mock := &testutil.MockLogger{}

	r := nethttp.NewRouter()
	r.Use(Logging(mock))

	testError := errors.New("test error")
	r.GET("/error", func(c router.Context) error {
		return testError
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/error", nil))

	logs := mock.Entries()
	if len(logs) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(logs))
	}
	failed := logs[1]
	if failed.Msg != "request failed" || failed.Level != "error" {
		t.Errorf("unexpected failure entry: %+v", failed)
	}
	if failed.Fields[FieldError] != testError {
		t.Errorf("expected error %v, got %v", testError, failed.Fields[FieldError])
	}
}

func TestLogging_UsesCorrelationContext(t *testing.T) {
	mock := &testutil.MockLogger{}

	r := nethttp.NewRouter()
	r.Use(correlationmw.Tag())
	r.Use(Logging(mock))
	r.GET("/s3", func(c router.Context) error {
		correlation.Set(c.Request().Context(), correlation.KeyEndpoint, "s3")
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/s3", nil)
	req.Header.Set(correlationmw.DefaultHeader, "abc123")
	r.ServeHTTP(httptest.NewRecorder(), req)

	logs := mock.Entries()
	if len(logs) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(logs))
	}
	for _, entry := range logs {
		if entry.Fields[correlation.KeyCorrelationID] != "abc123" {
			t.Errorf("%q: correlation_id = %v", entry.Msg, entry.Fields[correlation.KeyCorrelationID])
		}
		if entry.Fields[correlation.KeyMethod] != "GET" || entry.Fields[correlation.KeyPath] != "/s3" {
			t.Errorf("%q: unexpected fields %v", entry.Msg, entry.Fields)
		}
	}
	if logs[0].Fields[correlation.KeyEndpoint] != nil {
		t.Error("start line was logged before the handler set endpoint")
	}
	if logs[1].Fields[correlation.KeyEndpoint] != "s3" {
		t.Errorf("completion line endpoint = %v, want s3", logs[1].Fields[correlation.KeyEndpoint])
	}
}

func TestLogging_DurationTracking(t *testing.T) {
	mock := &testutil.MockLogger{}

	r := nethttp.NewRouter()
	r.Use(Logging(mock))
	r.GET("/slow", func(c router.Context) error {
		time.Sleep(50 * time.Millisecond)
		return c.String(http.StatusOK, "done")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))

	logs := mock.Entries()
	if len(logs) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(logs))
	}
	durationMs, ok := logs[1].Fields[FieldDurationMS].(int64)
	if !ok {
		t.Fatalf("expected duration_ms to be int64, got %T", logs[1].Fields[FieldDurationMS])
	}
	if durationMs < 50 {
		t.Errorf("expected duration >= 50ms, got %vms", durationMs)
	}
}

func TestWithConfig_ExcludedPath(t *testing.T) {
	mock := &testutil.MockLogger{}

	r := nethttp.NewRouter()
	r.Use(WithConfig(mock, Config{
		Enabled:              true,
		LogStart:             true,
		ExcludedPathPrefixes: []string{"/health"},
	}))
	r.GET("/health", func(c router.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if n := len(mock.Entries()); n != 0 {
		t.Fatalf("expected no log entries, got %d", n)
	}
}

func TestWithConfig_PathPolicyMinimal(t *testing.T) {
	mock := &testutil.MockLogger{}

	r := nethttp.NewRouter()
	r.Use(WithConfig(mock, Config{
		Enabled:  true,
		LogStart: true,
		PathPolicies: []PathPolicy{
			{Prefix: "/rds", Mode: ModeMinimal},
		},
	}))
	r.GET("/rds", func(c router.Context) error {
		return c.String(http.StatusFailedDependency, "failed")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rds", nil))

	logs := mock.Entries()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	if logs[0].Msg != "request completed" || logs[0].Fields[FieldStatus] != http.StatusFailedDependency {
		t.Fatalf("unexpected entry: %+v", logs[0])
	}
}

func TestWithConfig_Disabled(t *testing.T) {
	mock := &testutil.MockLogger{}

	h := router.Chain(func(c router.Context) error {
		return c.String(http.StatusOK, "ok")
	}, WithConfig(mock, Config{}))
	router.Serve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/s3", nil), h)

	if n := len(mock.Entries()); n != 0 {
		t.Fatalf("expected no log entries, got %d", n)
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{"off": ModeOff, " MINIMAL ": ModeMinimal, "full": ModeFull, "verbose": ModeFull}
	for in, want := range cases {
		if got := ParseMode(in); got != want {
			t.Errorf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
}
