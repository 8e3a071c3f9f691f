package tracing

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	provider, err := NewTracerProvider(context.Background(), TracerConfig{ServiceName: "validation-app"})
	if err != nil {
		t.Fatalf("expected no error for disabled tracing, got: %v", err)
	}
	if provider.Enabled() {
		t.Fatal("provider must report disabled")
	}
	if provider.Tracer("test") == nil {
		t.Fatal("expected tracer to be non-nil")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestTracerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  TracerConfig
		wantErr string
	}{
		{"disabled skips checks", TracerConfig{}, ""},
		{"valid", TracerConfig{Enabled: true, ServiceName: "svc", Endpoint: "localhost:4317", SampleRate: 0.5}, ""},
		{"missing service name", TracerConfig{Enabled: true, Endpoint: "localhost:4317"}, "service name is required"},
		{"no endpoint keeps spans local", TracerConfig{Enabled: true, ServiceName: "svc", SampleRate: 1}, ""},
		{"negative sample rate", TracerConfig{Enabled: true, ServiceName: "svc", Endpoint: "x:1", SampleRate: -0.1}, "sample rate"},
		{"sample rate above one", TracerConfig{Enabled: true, ServiceName: "svc", Endpoint: "x:1", SampleRate: 1.5}, "sample rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewTracerProvider_LocalWithoutEndpoint(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	provider, err := NewTracerProvider(context.Background(), TracerConfig{
		Enabled:     true,
		ServiceName: "validation-app",
		SampleRate:  1,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	if !provider.Enabled() || provider.Exporting() {
		t.Fatalf("expected an enabled, non-exporting provider (enabled=%v exporting=%v)", provider.Enabled(), provider.Exporting())
	}

	_, span := otel.Tracer("test").Start(context.Background(), "request")
	defer span.End()
	if !span.SpanContext().IsValid() || !span.SpanContext().IsSampled() {
		t.Fatalf("expected the global provider to sample spans, got %+v", span.SpanContext())
	}
}

func TestNewTracerProvider_RejectsInvalidConfig(t *testing.T) {
	_, err := NewTracerProvider(context.Background(), TracerConfig{Enabled: true})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDependencySpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	_, span := StartDependencySpan(context.Background(), "rds", attribute.Int("rds.query_result", 15))
	EndDependencySpan(span, false, "database dependency unavailable")

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name() != "dependency rds" {
		t.Errorf("span name = %q", got.Name())
	}
	if got.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", got.Status().Code)
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range got.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs["dependency.system"].AsString() != "rds" || attrs["rds.query_result"].AsInt64() != 15 {
		t.Errorf("unexpected attributes: %v", got.Attributes())
	}
	if attrs["dependency.available"].AsBool() {
		t.Error("dependency.available should be false")
	}
}
