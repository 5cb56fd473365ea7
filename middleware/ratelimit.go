package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/thadeucbr/mcp-tools/protocol"
)

// RateLimitOption configures the rate limiter.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	keyFunc func(context.Context, *protocol.Request) string
	logger  Logger
}

// WithRateLimitKeyFunc buckets requests by the returned key.
func WithRateLimitKeyFunc(fn func(context.Context, *protocol.Request) string) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.keyFunc = fn
	}
}

// WithRateLimitLogger logs rejected requests.
func WithRateLimitLogger(l Logger) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.logger = l
	}
}

// RateLimit applies a token bucket of rate requests per second with the given
// burst. Pings are never limited. Without a key func all requests share one
// bucket.
func RateLimit(rate int, burst int, opts ...RateLimitOption) Middleware {
	cfg := &rateLimitConfig{
		keyFunc: func(context.Context, *protocol.Request) string { return "global" },
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Rate:     rate,
		Burst:    burst,
		Interval: time.Second,
	})

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if req.Method == protocol.MethodPing {
				return next(ctx, req)
			}

			key := cfg.keyFunc(ctx, req)
			if !limiter.Allow(ctx, key) {
				if cfg.logger != nil {
					cfg.logger.Warn("rate limit exceeded", F("method", req.Method), F("key", key))
				}
				return nil, protocol.NewRateLimited("rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}

// ByTool buckets tools/call requests per tool name and everything else per method.
func ByTool(_ context.Context, req *protocol.Request) string {
	if name := toolName(req); name != "" {
		return "tool:" + name
	}
	return req.Method
}

// ByRemoteAddr buckets requests by the client address recorded by the HTTP
// and WebSocket transports.
func ByRemoteAddr(ctx context.Context, _ *protocol.Request) string {
	if addr := protocol.GetRequestMeta(ctx, "remote_addr"); addr != "" {
		return addr
	}
	return "local"
}
