package rpcserver

import (
	"sync"
	"time"
)

// slidingWindowLimiter enforces a maximum number of events within a time
// window. Used to bound how often a single vehicle ID may poll
// vehicle_get_action, so a misbehaving client can't starve the handler
// goroutines for every other vehicle.
type slidingWindowLimiter struct {
	window time.Duration
	limit  int
	now    func() time.Time

	mu     sync.Mutex
	events []time.Time
}

// newSlidingWindowLimiter constructs a limiter allowing up to limit events
// per window. A non-positive window or limit disables the limiter.
func newSlidingWindowLimiter(window time.Duration, limit int, timeSource func() time.Time) *slidingWindowLimiter {
	if window <= 0 || limit <= 0 {
		return &slidingWindowLimiter{window: window, limit: limit}
	}
	if timeSource == nil {
		timeSource = time.Now
	}
	return &slidingWindowLimiter{window: window, limit: limit, now: timeSource}
}

// allow reports whether the caller may proceed under the current rate limits.
func (l *slidingWindowLimiter) allow() bool {
	if l == nil || l.limit <= 0 || l.window <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.events[:0]
	for _, ts := range l.events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.events = kept
	if len(l.events) >= l.limit {
		return false
	}
	l.events = append(l.events, now)
	return true
}

// perVehicleLimiter keys a slidingWindowLimiter per vehicle ID, lazily
// constructing one on first use.
type perVehicleLimiter struct {
	window time.Duration
	limit  int

	mu       sync.Mutex
	limiters map[int]*slidingWindowLimiter
}

func newPerVehicleLimiter(window time.Duration, limit int) *perVehicleLimiter {
	return &perVehicleLimiter{window: window, limit: limit, limiters: make(map[int]*slidingWindowLimiter)}
}

func (p *perVehicleLimiter) allow(vehicleID int) bool {
	if p == nil || p.limit <= 0 || p.window <= 0 {
		return true
	}
	p.mu.Lock()
	l, ok := p.limiters[vehicleID]
	if !ok {
		l = newSlidingWindowLimiter(p.window, p.limit, nil)
		p.limiters[vehicleID] = l
	}
	p.mu.Unlock()
	return l.allow()
}
