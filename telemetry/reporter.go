package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tilezen/go-hillshades/logger"
)

// SpanReporter records unexpected render errors on the active span and logs them.
type SpanReporter struct {
	logger logger.Logger
}

func NewSpanReporter(l logger.Logger) *SpanReporter {
	if l == nil {
		l = logger.Nop()
	}
	return &SpanReporter{logger: l}
}

func (r *SpanReporter) Report(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	fields := []any{"error", err}
	if sc := span.SpanContext(); sc.HasTraceID() {
		fields = append(fields, "trace_id", sc.TraceID().String())
	}
	r.logger.Error("unexpected render error", fields...)
}
