package broadcast

import (
	"sync"
	"time"
)

//go:generate mockgen -destination=./mocks/mock_time_provider.go -package=mocks github.com/localboost/localboost/internal/service/broadcast TimeProvider

// TimeProvider is an interface that provides time-related functionality
// that can be mocked in tests
type TimeProvider interface {
	// Now returns the current time
	Now() time.Time

	// Since returns the time elapsed since t
	Since(t time.Time) time.Duration
}

// RealTimeProvider is the default implementation of TimeProvider
// that uses the actual system time
type RealTimeProvider struct{}

// Now returns the current time in UTC
func (rtp RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// Since returns the time elapsed since t
func (rtp RealTimeProvider) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// NewRealTimeProvider creates a new RealTimeProvider
func NewRealTimeProvider() TimeProvider {
	return &RealTimeProvider{}
}

// FixedTimeProvider returns a settable instant. Useful for replaying a
// schedule, e.g. jumping past an A/B test window.
type FixedTimeProvider struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixedTimeProvider(now time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{now: now}
}

func (p *FixedTimeProvider) Now() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

func (p *FixedTimeProvider) Since(t time.Time) time.Duration {
	return p.Now().Sub(t)
}

// Advance moves the clock forward by d
func (p *FixedTimeProvider) Advance(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = p.now.Add(d)
}
