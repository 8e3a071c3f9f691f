package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const dependencyTracer = "validation-app/dependency"

// StartDependencySpan opens a client span for a simulated dependency check
// such as "s3" or "rds".
func StartDependencySpan(ctx context.Context, system string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String("dependency.system", system)}, attrs...)
	return otel.Tracer(dependencyTracer).Start(ctx, "dependency "+system,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// EndDependencySpan records the simulated outcome and ends span.
func EndDependencySpan(span trace.Span, ok bool, message string) {
	span.SetAttributes(attribute.Bool("dependency.available", ok))
	if ok {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, message)
	}
	span.End()
}
