package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Options controls how New builds the default logger.
type Options struct {
	// Level is one of DEBUG, INFO, WARN (or WARNING), ERROR. Empty means
	// DEBUG in development and INFO in production.
	Level string
	// Format is "text" or "json". Empty means text in development and
	// json in production.
	Format string
	// Output defaults to os.Stderr so the stdio transport keeps stdout for
	// protocol messages.
	Output io.Writer
}

// callerHandler injects a short "caller" attribute into every record.
type callerHandler struct {
	slog.Handler
}

// trimPathDepth keeps only the last n segments of the given path.
// Example: trimPathDepth("a/b/c/d.go", 3) => "b/c/d.go"
func trimPathDepth(path string, depth int) string {
	parts := strings.Split(path, "/")
	if len(parts) <= depth {
		return path
	}
	return strings.Join(parts[len(parts)-depth:], "/")
}

func (h *callerHandler) Handle(ctx context.Context, r slog.Record) error {
	caller := "unknown"
	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			caller = fmt.Sprintf("%s:%d", trimPathDepth(frame.File, 3), frame.Line)
		}
	}
	r.AddAttrs(slog.String("caller", caller))
	return h.Handler.Handle(ctx, r)
}

func (h *callerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &callerHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *callerHandler) WithGroup(name string) slog.Handler {
	return &callerHandler{Handler: h.Handler.WithGroup(name)}
}

// traceContextHandler adds trace_id and span_id when the context carries a
// valid OpenTelemetry span context.
type traceContextHandler struct {
	slog.Handler
}

func (h *traceContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceContextHandler) WithGroup(name string) slog.Handler {
	return &traceContextHandler{Handler: h.Handler.WithGroup(name)}
}

// ParseLevel converts a level name to a slog.Level. WARNING is accepted as
// an alias of WARN. An empty name yields def.
func ParseLevel(name string, def slog.Level) (slog.Level, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	switch name {
	case "":
		return def, nil
	case "WARNING":
		name = "WARN"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return def, fmt.Errorf("invalid log level %q (expected: DEBUG, INFO, WARN, ERROR)", name)
	}
	return level, nil
}

// New initializes the default logger for the application.
// It uses text format and DEBUG level for development, JSON and INFO for production,
// unless Options says otherwise.
func New(opts Options) (*slog.Logger, error) {
	production := os.Getenv("ENV") == "production"

	defLevel := slog.LevelDebug
	if production {
		defLevel = slog.LevelInfo
	}
	level, err := ParseLevel(opts.Level, defLevel)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = "text"
		if production {
			format = "json"
		}
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(out, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", opts.Format)
	}

	handler = &traceContextHandler{Handler: &callerHandler{Handler: handler}}
	slog.SetDefault(slog.New(handler))
	return slog.Default(), nil
}
