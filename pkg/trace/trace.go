package trace

import (
    "context"

    "github.com/google/uuid"
)

type ctxKey struct{}

// New returns a fresh trace ID.
func New() string { return uuid.NewString() }

// WithID attaches a trace ID to ctx.
func WithID(ctx context.Context, id string) context.Context {
    return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the trace ID and whether one was attached.
func FromContext(ctx context.Context) (string, bool) {
    id, ok := ctx.Value(ctxKey{}).(string)
    return id, ok
}

// Ensure returns ctx carrying a trace ID, minting one if absent.
func Ensure(ctx context.Context) (context.Context, string) {
    if id, ok := FromContext(ctx); ok {
        return ctx, id
    }
    id := New()
    return WithID(ctx, id), id
}
