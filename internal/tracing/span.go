package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/fixfire/internal/fix"
)

// StartInjectSpan starts a new span for one injected message. The span is
// named after the message type and carries the submission index and
// correlation key.
func StartInjectSpan(ctx context.Context, tracer trace.Tracer, index int, key, msgType string) (context.Context, trace.Span) {
	spanName := "inject " + msgType
	if name := fix.MsgTypeName(msgType); name != "" {
		spanName = "inject " + name
	}
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("messaging.system", "fix"),
		attribute.String("fix.msg_type", msgType),
		attribute.Int("fixfire.index", index),
		attribute.String("fixfire.key", key),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
