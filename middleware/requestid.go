package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/thadeucbr/mcp-tools/protocol"
)

type requestIDKey struct{}

// RequestID injects a UUID request id unless one is already present.
func RequestID() Middleware {
	return RequestIDWithGenerator(func() string { return uuid.NewString() })
}

// RequestIDWithGenerator injects ids produced by generator.
func RequestIDWithGenerator(generator func() string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if RequestIDFromContext(ctx) != "" {
				return next(ctx, req)
			}
			return next(ContextWithRequestID(ctx, generator()), req)
		}
	}
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ContextWithRequestID returns ctx carrying id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}
