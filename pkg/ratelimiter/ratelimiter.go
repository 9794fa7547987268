package ratelimiter

import (
	"strings"
	"sync"
	"time"
)

// Policy allows Limit events per key within a sliding Window
type Policy struct {
	Limit  int
	Window time.Duration
}

// RateLimiter is an in-memory sliding window limiter. Keys are grouped in
// namespaces, each with its own policy. A namespace without a policy denies
// every call.
type RateLimiter struct {
	mu       sync.Mutex
	events   map[string][]time.Time
	policies map[string]Policy
	now      func() time.Time
	stop     chan struct{}
	stopped  bool
}

// NewRateLimiter starts a limiter that prunes idle keys every sweep interval
func NewRateLimiter(sweep time.Duration) *RateLimiter {
	rl := &RateLimiter{
		events:   make(map[string][]time.Time),
		policies: make(map[string]Policy),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if sweep > 0 {
		go rl.sweepLoop(sweep)
	}
	return rl
}

// SetPolicy sets the policy of a namespace
func (rl *RateLimiter) SetPolicy(namespace string, limit int, window time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.policies[namespace] = Policy{Limit: limit, Window: window}
}

// Allow records an event for key and reports whether it fits the policy.
// When it does not, the returned duration is the wait until a slot frees up.
func (rl *RateLimiter) Allow(namespace, key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	policy, ok := rl.policies[namespace]
	if !ok || policy.Limit <= 0 {
		return false, 0
	}

	now := rl.now()
	composite := namespace + ":" + key
	recent := prune(rl.events[composite], now.Add(-policy.Window))

	if len(recent) >= policy.Limit {
		rl.events[composite] = recent
		return false, recent[0].Add(policy.Window).Sub(now)
	}

	rl.events[composite] = append(recent, now)
	return true, 0
}

// Reset forgets every event of key
func (rl *RateLimiter) Reset(namespace, key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.events, namespace+":"+key)
}

// Stop ends the sweep goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if !rl.stopped {
		close(rl.stop)
		rl.stopped = true
	}
}

// prune drops events at or before cutoff. Events are kept in time order.
func prune(events []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(events) && !events[i].After(cutoff) {
		i++
	}
	return events[i:]
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for composite, events := range rl.events {
		namespace, _, _ := strings.Cut(composite, ":")
		policy, ok := rl.policies[namespace]
		if !ok {
			delete(rl.events, composite)
			continue
		}
		if recent := prune(events, now.Add(-policy.Window)); len(recent) == 0 {
			delete(rl.events, composite)
		} else {
			rl.events[composite] = recent
		}
	}
}

func (rl *RateLimiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}
