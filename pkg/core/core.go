package core

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDKey is a custom context key type for storing the request ID in context.
type RequestIDKey struct{}

// RequestIDHeader is the HTTP header used to propagate request IDs.
const RequestIDHeader = "X-Request-ID"

// WithRequestID returns a new context with a generated request ID set.
func WithRequestID(ctx context.Context) context.Context {
	reqID := uuid.New().String()
	return context.WithValue(ctx, RequestIDKey{}, reqID)
}

// RequestIDFromRequest reuses the caller supplied X-Request-ID header when
// present and generates a new one otherwise. Used for HTTP transport.
func RequestIDFromRequest(ctx context.Context, r *http.Request) context.Context {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return context.WithValue(ctx, RequestIDKey{}, id)
	}
	return WithRequestID(ctx)
}

// RequestIDFromCtx returns the request ID stored in ctx, or "" if none.
func RequestIDFromCtx(ctx context.Context) string {
	reqID, _ := ctx.Value(RequestIDKey{}).(string)
	return reqID
}

// LoggerFromCtx returns a slog.Logger with request_id field if present in context.
// If no request ID is found, it returns the default logger.
// This allows for structured logging with request context.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if reqID := RequestIDFromCtx(ctx); reqID != "" {
		return slog.Default().With("request_id", reqID)
	}
	return slog.Default()
}
