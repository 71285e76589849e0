package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartCommandSpan creates a span for a CLI command execution.
//
//	ctx, span := telemetry.StartCommandSpan(ctx, "inbox")
//	defer span.End()
func StartCommandSpan(ctx context.Context, cmdName string) (context.Context, trace.Span) {
	ctx, span := GetTracerProvider().Tracer("commands").Start(ctx, "command."+cmdName)
	span.SetAttributes(
		attribute.String("command", cmdName),
		attribute.String("component", "cli"),
	)
	return ctx, span
}

// StartAPISpan creates a client span for one call to the approval API.
func StartAPISpan(ctx context.Context, operation, method, path string) (context.Context, trace.Span) {
	ctx, span := GetTracerProvider().Tracer("api").Start(ctx, "api."+operation,
		trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("operation", operation),
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)
	return ctx, span
}

// StartSyncSpan creates a span for a workflow sync operation, which may
// issue several API calls (an action and its refetch).
func StartSyncSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := GetTracerProvider().Tracer("workflowsync").Start(ctx, "sync."+operation)
	span.SetAttributes(attribute.String("operation", operation))
	span.SetAttributes(attrs...)
	return ctx, span
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// End records err (if any) and ends the span. It is meant for defer with a
// named error result.
func End(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
