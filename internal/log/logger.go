package log

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"

	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
)

// Logger provides structured logging with slog
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New creates a new Logger with the given configuration
func New(config Config) *Logger {
	var out io.Writer = os.Stderr
	if config.Output != nil {
		out = config.Output
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	base := slog.New(handler)
	if config.ServiceName != "" {
		base = base.With("service", config.ServiceName)
	}
	if config.ServiceVersion != "" {
		base = base.With("version", config.ServiceVersion)
	}

	return &Logger{slog: base, config: config}
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *Logger {
	return &Logger{slog: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// With returns a new Logger with the given attributes added to all log entries
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), config: l.config}
}

// WithError adds error details to the logger.
// Client errors contribute their code, HTTP status and cause.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	ce, ok := clierrors.As(err)
	if !ok {
		return l.With("error", err.Error())
	}

	args := []any{
		"error", ce.Message,
		"error_code", string(ce.Code),
	}
	if ce.Status != 0 {
		args = append(args, "http_status", ce.Status)
	}
	if ce.Cause != nil {
		args = append(args, "cause", ce.Cause.Error())
	}
	return l.With(args...)
}

// WithContext adds the trace and span ids of the active span, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With("trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// DebugContext logs a debug message with context
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slog.DebugContext(ctx, msg, args...)
}

// WarnContext logs a warning message with context
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slog.WarnContext(ctx, msg, args...)
}

// LogError logs a failed operation with full error details.
func (l *Logger) LogError(ctx context.Context, operation string, err error) {
	if err == nil {
		return
	}
	l.WithContext(ctx).WithError(err).slog.ErrorContext(ctx, "operation failed", "operation", operation)
}

// Enabled returns whether the logger is enabled for the given level
func (l *Logger) Enabled(ctx context.Context, level Level) bool {
	return l.slog.Enabled(ctx, level.slogLevel())
}

// Slog exposes the underlying *slog.Logger for libraries that take one.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Config returns the logger configuration
func (l *Logger) Config() Config {
	return l.config
}
