package server

import (
	"context"
	"sync"
)

// CancellationRegistry maps in-flight request ids to their cancel funcs so a
// notifications/cancelled message can stop a running tool.
type CancellationRegistry struct {
	mu       sync.Mutex
	requests map[string]context.CancelFunc
}

// NewCancellationRegistry creates an empty registry.
func NewCancellationRegistry() *CancellationRegistry {
	return &CancellationRegistry{requests: make(map[string]context.CancelFunc)}
}

// Track derives a cancelable context for requestID. The returned release
// func must be called when the request finishes.
func (r *CancellationRegistry) Track(ctx context.Context, requestID string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.requests[requestID] = cancel
	r.mu.Unlock()

	return ctx, func() {
		cancel()
		r.mu.Lock()
		delete(r.requests, requestID)
		r.mu.Unlock()
	}
}

// Cancel cancels requestID. It reports whether the request was in flight.
func (r *CancellationRegistry) Cancel(requestID string) bool {
	r.mu.Lock()
	cancel, ok := r.requests[requestID]
	delete(r.requests, requestID)
	r.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Active returns the number of tracked requests.
func (r *CancellationRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}
