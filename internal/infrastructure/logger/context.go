package logger

import "context"

type contextKey int

const requestIDKey contextKey = iota

// ContextWithRequestID attaches the request ID to the context so that
// lower layers (the gorm adapter in particular) can correlate their log
// entries with the originating HTTP request.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID, or "" when none is attached
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
