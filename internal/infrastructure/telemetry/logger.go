package telemetry

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// SetupLogger builds the process-wide structured JSON logger. Records
// carry trace and span IDs whenever a valid span is on the context.
func SetupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	return slog.New(&TracedHandler{
		Handler: slog.NewJSONHandler(os.Stdout, opts),
	})
}

// TracedHandler decorates an slog handler with OpenTelemetry trace
// context from the record's context.
type TracedHandler struct {
	slog.Handler
}

func (h *TracedHandler) Handle(ctx context.Context, r slog.Record) error {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			r.AddAttrs(slog.Bool("sampled", true))
		}
	}
	return h.Handler.Handle(ctx, r)
}

// WithContext returns the logger with the context's trace attributes
// pre-bound, for call sites that log repeatedly within one span.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return logger
	}
	attrs := []any{
		"trace_id", sc.TraceID().String(),
		"span_id", sc.SpanID().String(),
	}
	if sc.IsSampled() {
		attrs = append(attrs, "sampled", true)
	}
	return logger.With(attrs...)
}
