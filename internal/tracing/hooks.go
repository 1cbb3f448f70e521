package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SpanHooks reports widget analytics and failures onto the span carried by
// ctx. It satisfies both perf.AnalyticsHook and scheduling.ErrorTracker.
type SpanHooks struct {
	logger *zap.Logger
}

// NewSpanHooks builds SpanHooks. A nil logger disables log output.
func NewSpanHooks(logger *zap.Logger) *SpanHooks {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpanHooks{logger: logger}
}

// Track adds a span event named event.
func (h *SpanHooks) Track(ctx context.Context, event string, value float64, label string) {
	trace.SpanFromContext(ctx).AddEvent(event, trace.WithAttributes(
		attribute.Float64("widget.value", value),
		attribute.String("widget.label", label),
	))
}

// Capture records err on the current span and marks it failed.
func (h *SpanHooks) Capture(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(tags))
	fields := make([]zap.Field, 0, len(tags)+1)
	for k, v := range tags {
		attrs = append(attrs, attribute.String("widget."+k, v))
		fields = append(fields, zap.String(k, v))
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
	h.logger.Error("scheduling widget error", append(fields, zap.Error(err))...)
}
