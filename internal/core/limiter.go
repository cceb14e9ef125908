package core

// limiter.go implements concurrency control for registry matching runs.
//
// Each matching run fans out batches of HTTP lookups, so the number of
// simultaneously running matches is bounded by a semaphore. When every
// slot is occupied new runs wait up to maxWait before failing with
// ErrTooManyMatchRuns.
//
// The limiter also supports graceful shutdown via WaitForDrain, which
// blocks until all in-flight runs complete.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyMatchRuns is returned when all match slots are occupied and
// the wait timeout expires. Clients should retry after a short delay.
var ErrTooManyMatchRuns = errors.New("too many concurrent matching runs, please try again later")

// DefaultMaxConcurrentMatches is the default limit for parallel runs.
const DefaultMaxConcurrentMatches = 3

// DefaultMatchWaitTime is how long to wait for a slot before rejecting.
const DefaultMatchWaitTime = 10 * time.Second

// MatchLimiter bounds concurrent matching runs using a semaphore.
type MatchLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewMatchLimiter creates a limiter allowing at most maxConcurrent
// simultaneous runs. Runs that cannot acquire a slot within maxWait
// receive ErrTooManyMatchRuns.
func NewMatchLimiter(maxConcurrent int, maxWait time.Duration) *MatchLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentMatches
	}
	if maxWait <= 0 {
		maxWait = DefaultMatchWaitTime
	}

	return &MatchLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a run slot. Returns nil on success,
// ErrTooManyMatchRuns if the timeout expires. The caller must call
// Release exactly once per successful Acquire.
func (l *MatchLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyMatchRuns

	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire attempts to acquire a slot without blocking.
func (l *MatchLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release releases a previously acquired slot.
func (l *MatchLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of runs currently holding a slot.
func (l *MatchLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the slot capacity.
func (l *MatchLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *MatchLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all in-flight runs complete or the context
// is cancelled. Used for graceful shutdown.
func (l *MatchLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// MatchLimiterStatus is a snapshot of the limiter's current state.
type MatchLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *MatchLimiter) Status() MatchLimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return MatchLimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
