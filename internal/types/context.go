package types

import "context"

// requestIDKey is unexported so only this package can set or read the value.
type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying id. The request middleware
// calls it once per request; the worker calls it once per SQS record.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the ID stored by WithRequestID, or "" if there is none.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
