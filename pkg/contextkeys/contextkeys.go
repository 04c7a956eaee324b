package contextkeys

import "context"

// contextKey is a typed key for context values to avoid conflicts
type contextKey string

// RequestIDKey is the context key for the id assigned to each HTTP request
const RequestIDKey contextKey = "request-id"

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
