package middleware

import "time"

// StackConfig tunes DefaultStack. Zero values disable the corresponding layer.
type StackConfig struct {
	Timeout      time.Duration
	RatePerSec   int
	Burst        int
	MaxBodyBytes int64
	OTel         []OTelOption
	DisableOTel  bool
}

// DefaultStack returns the production chain:
// Recover -> RequestID -> OTel -> Timeout -> RateLimit -> SizeLimit -> Logging.
func DefaultStack(logger Logger, cfg StackConfig) []Middleware {
	stack := []Middleware{
		RecoverWithLogger(logger),
		RequestID(),
	}
	if !cfg.DisableOTel {
		stack = append(stack, OTel(cfg.OTel...))
	}
	if cfg.Timeout > 0 {
		stack = append(stack, Timeout(cfg.Timeout))
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.RatePerSec
		}
		stack = append(stack, RateLimit(cfg.RatePerSec, burst, WithRateLimitLogger(logger)))
	}
	if cfg.MaxBodyBytes > 0 {
		stack = append(stack, SizeLimit(cfg.MaxBodyBytes, WithSizeLimitLogger(logger)))
	}
	return append(stack, Logging(logger))
}
