package transport

import (
	"context"
	"sync/atomic"
	"time"
)

// ShutdownConfig configures graceful shutdown.
type ShutdownConfig struct {
	// Timeout bounds the wait for in-flight requests. Default 30s.
	Timeout time.Duration

	// DrainDelay keeps accepting requests for a while after shutdown starts,
	// giving load balancers time to stop routing here.
	DrainDelay time.Duration
}

// ShutdownManager counts in-flight requests and refuses new ones while
// draining.
type ShutdownManager struct {
	config   ShutdownConfig
	draining atomic.Bool
	inFlight atomic.Int64
}

// NewShutdownManager creates a shutdown manager.
func NewShutdownManager(config ShutdownConfig) *ShutdownManager {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &ShutdownManager{config: config}
}

// IsDraining reports whether shutdown has started draining.
func (sm *ShutdownManager) IsDraining() bool {
	return sm.draining.Load()
}

// InFlightRequests returns the number of tracked requests.
func (sm *ShutdownManager) InFlightRequests() int64 {
	return sm.inFlight.Load()
}

// TrackRequest registers a request. It returns false while draining, in
// which case the caller must reject the request and not call CompleteRequest.
func (sm *ShutdownManager) TrackRequest() bool {
	if sm.draining.Load() {
		return false
	}
	sm.inFlight.Add(1)
	return true
}

// CompleteRequest marks a tracked request as finished.
func (sm *ShutdownManager) CompleteRequest() {
	sm.inFlight.Add(-1)
}

// Shutdown waits DrainDelay, starts draining and blocks until every tracked
// request completes or Timeout elapses. A timeout with requests still in
// flight returns context.DeadlineExceeded.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	if sm.config.DrainDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sm.config.DrainDelay):
		}
	}

	sm.draining.Store(true)

	ctx, cancel := context.WithTimeout(ctx, sm.config.Timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for sm.inFlight.Load() > 0 {
		select {
		case <-ctx.Done():
			if sm.inFlight.Load() > 0 {
				return ctx.Err()
			}
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
