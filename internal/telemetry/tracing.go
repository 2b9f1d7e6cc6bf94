package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys shared by the submission and store decorators.
const (
	AttrIdempotencyKey = attribute.Key("submission.idempotency_key")
	AttrOutcome        = attribute.Key("submission.outcome")
	AttrReplayed       = attribute.Key("submission.replayed")
	AttrDBSystem       = attribute.Key("db.system")
	AttrDBOperation    = attribute.Key("db.operation")
)

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName, opts...)
}

// StartStoreSpan opens a client span named "ResultStore.<method>" tagged with
// the backend and logical operation.
func StartStoreSpan(ctx context.Context, backend, method, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, "ResultStore."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrDBSystem.String(backend),
			AttrDBOperation.String(operation),
		),
	)
}

func AddSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}

// SetSubmissionOutcome tags the span with how a submission was resolved.
func SetSubmissionOutcome(span trace.Span, outcome string, replayed bool) {
	AddSpanAttributes(span,
		AttrOutcome.String(outcome),
		AttrReplayed.Bool(replayed),
	)
}

func RecordSpanError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanSuccess(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

// FinishSpan sets the span status from err. It does not end the span.
func FinishSpan(span trace.Span, err error) {
	if err != nil {
		RecordSpanError(span, err)
		return
	}
	SetSpanSuccess(span)
}

func TraceID(ctx context.Context) string {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.HasTraceID() {
		return spanCtx.TraceID().String()
	}
	return ""
}

func SpanID(ctx context.Context) string {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.HasSpanID() {
		return spanCtx.SpanID().String()
	}
	return ""
}
