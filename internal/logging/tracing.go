package logging

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// spanLogger exports finished spans as debug log lines, failed spans as
// warnings.
type spanLogger struct {
	logger *log.Logger
}

func (e *spanLogger) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		fields := log.Fields{
			"span":        span.Name(),
			"trace_id":    span.SpanContext().TraceID().String(),
			"duration_ms": span.EndTime().Sub(span.StartTime()).Milliseconds(),
		}
		for _, attr := range span.Attributes() {
			fields[string(attr.Key)] = attr.Value.AsInterface()
		}

		entry := e.logger.WithFields(fields)
		if span.Status().Code == codes.Error {
			entry.WithField("error", span.Status().Description).Warn("span failed")
			continue
		}
		entry.Debug("span finished")
	}
	return nil
}

func (e *spanLogger) Shutdown(context.Context) error { return nil }

// NewTracerProvider installs a global tracer provider that writes spans to
// logger. Callers shut it down on exit to flush pending spans.
func NewTracerProvider(logger *log.Logger) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(&spanLogger{logger: logger}),
	)
	otel.SetTracerProvider(tp)
	return tp
}
