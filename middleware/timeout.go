package middleware

import (
	"context"
	"time"

	"github.com/thadeucbr/mcp-tools/protocol"
)

// Timeout bounds each request with a deadline. Handlers observe it through
// ctx; outbound calls to Mongo, OpenAI and the gateway are cancelled with it.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}
