package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	correlationmw "github.com/nimburion/validation-app/pkg/middleware/correlation"
	"github.com/nimburion/validation-app/pkg/server/router"
)

func setupTestTracerProvider(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return recorder
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func serve(h router.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.Serve(rec, req, h)
	return rec
}

func TestTracing_CreatesServerSpan(t *testing.T) {
	recorder := setupTestTracerProvider(t)

	h := router.Chain(func(c router.Context) error {
		return c.String(http.StatusFailedDependency, "failed")
	}, Tracing(Config{}))
	serve(h, httptest.NewRequest(http.MethodGet, "/rds", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "HTTP GET /rds" {
		t.Errorf("span name = %q", span.Name())
	}
	if span.SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v", span.SpanKind())
	}
	a := attrs(span)
	if a["http.method"].AsString() != "GET" || a["http.status_code"].AsInt64() != 424 {
		t.Errorf("unexpected attributes: %v", span.Attributes())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("a 424 must not mark the span as error, got %v", span.Status().Code)
	}
}

func TestTracing_AddsCorrelationID(t *testing.T) {
	recorder := setupTestTracerProvider(t)

	h := router.Chain(func(c router.Context) error {
		return c.String(http.StatusOK, "ok")
	}, correlationmw.Tag(), Tracing(Config{}))

	req := httptest.NewRequest(http.MethodGet, "/s3", nil)
	req.Header.Set(correlationmw.DefaultHeader, "abc123")
	serve(h, req)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := attrs(spans[0])["correlation.id"].AsString(); got != "abc123" {
		t.Errorf("correlation.id = %q, want abc123", got)
	}
}

func TestTracing_RecordsError(t *testing.T) {
	recorder := setupTestTracerProvider(t)

	h := router.Chain(func(c router.Context) error {
		return errors.New("boom")
	}, Tracing(Config{}))
	serve(h, httptest.NewRequest(http.MethodGet, "/s3", nil))

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Status().Code != codes.Error {
		t.Fatalf("expected one error span, got %+v", spans)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}

func TestTracing_ServerErrorStatus(t *testing.T) {
	recorder := setupTestTracerProvider(t)

	h := router.Chain(func(c router.Context) error {
		return c.String(http.StatusServiceUnavailable, "down")
	}, Tracing(Config{}))
	serve(h, httptest.NewRequest(http.MethodGet, "/s3", nil))

	if spans := recorder.Ended(); len(spans) != 1 || spans[0].Status().Code != codes.Error {
		t.Fatalf("expected one error span, got %+v", spans)
	}
}

func TestTracing_ExcludedPathPrefixes(t *testing.T) {
	recorder := setupTestTracerProvider(t)

	h := router.Chain(func(c router.Context) error {
		return c.String(http.StatusOK, "ok")
	}, Tracing(Config{ExcludedPathPrefixes: []string{"/health"}}))
	serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))

	if n := len(recorder.Ended()); n != 0 {
		t.Fatalf("expected no spans, got %d", n)
	}
}

func TestTracing_ContinuesInboundTrace(t *testing.T) {
	recorder := setupTestTracerProvider(t)

	parentCtx, parent := otel.Tracer("client").Start(context.Background(), "client")
	req := httptest.NewRequest(http.MethodGet, "/s3", nil)
	otel.GetTextMapPropagator().Inject(parentCtx, propagation.HeaderCarrier(req.Header))
	parent.End()

	var seen trace.SpanContext
	h := router.Chain(func(c router.Context) error {
		seen = trace.SpanContextFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	}, Tracing(Config{TracerName: "test"}))
	serve(h, req)

	if seen.TraceID() != parent.SpanContext().TraceID() {
		t.Fatalf("trace id = %s, want %s", seen.TraceID(), parent.SpanContext().TraceID())
	}
	if n := len(recorder.Ended()); n != 2 {
		t.Fatalf("expected 2 spans, got %d", n)
	}
}
