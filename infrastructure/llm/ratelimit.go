package llm

import (
	"sync"
	"time"
)

// Default request budgets, overridable per deployment through Config.
const (
	DefaultRequestsPerMinute = 60
	DefaultRequestsPerHour   = 1000
)

// RateLimitConfig holds the sliding-window request budgets.
type RateLimitConfig struct {
	// RequestsPerMinute bounds calls in any trailing 60-second window.
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"min=1"`
	// RequestsPerHour bounds calls in any trailing 3600-second window.
	RequestsPerHour int `yaml:"requests_per_hour" validate:"min=1"`
}

// DefaultRateLimitConfig returns the stock 60/min, 1000/hour budgets.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: DefaultRequestsPerMinute,
		RequestsPerHour:   DefaultRequestsPerHour,
	}
}

// SlidingWindowLimiter tracks recent call timestamps and decides whether a
// new call may proceed immediately. State is entirely in-memory and resets
// on process restart, which is the intended behavior, not a gap. Safe for
// concurrent use; every timestamp in the minute window is by construction
// also in the hour window.
type SlidingWindowLimiter struct {
	mu        sync.Mutex
	calls     []time.Time
	perMinute int
	perHour   int

	// now is swapped in tests to drive the windows.
	now func() time.Time
}

// NewSlidingWindowLimiter creates a limiter with the given budgets.
// Non-positive budgets fall back to the defaults.
func NewSlidingWindowLimiter(cfg RateLimitConfig) *SlidingWindowLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.RequestsPerHour <= 0 {
		cfg.RequestsPerHour = DefaultRequestsPerHour
	}
	return &SlidingWindowLimiter{
		perMinute: cfg.RequestsPerMinute,
		perHour:   cfg.RequestsPerHour,
		now:       time.Now,
	}
}

// CanProceed reports whether a new call fits both window budgets.
// It has no side effects; the caller decides whether to queue on denial.
func (l *SlidingWindowLimiter) CanProceed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.canProceedLocked()
}

// RecordCall appends the current time to the tracked timestamps and prunes
// entries older than one hour.
func (l *SlidingWindowLimiter) RecordCall() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordLocked()
}

// TryAcquire atomically combines CanProceed and RecordCall: it records the
// call and returns true only when both budgets permit it. This closes the
// check-then-record race between concurrent callers.
func (l *SlidingWindowLimiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.canProceedLocked() {
		return false
	}
	l.recordLocked()
	return true
}

// CountWindow reports how many calls fall within the trailing window.
func (l *SlidingWindowLimiter) CountWindow(window time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countLocked(l.now(), window)
}

func (l *SlidingWindowLimiter) canProceedLocked() bool {
	now := l.now()
	return l.countLocked(now, time.Minute) < l.perMinute &&
		l.countLocked(now, time.Hour) < l.perHour
}

func (l *SlidingWindowLimiter) recordLocked() {
	now := l.now()
	l.calls = append(l.calls, now)

	// Prune everything older than the longest tracked window.
	cutoff := now.Add(-time.Hour)
	keep := 0
	for keep < len(l.calls) && !l.calls[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		l.calls = append(l.calls[:0], l.calls[keep:]...)
	}
}

func (l *SlidingWindowLimiter) countLocked(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	// Timestamps are appended in order, so scan from the tail.
	count := 0
	for i := len(l.calls) - 1; i >= 0; i-- {
		if !l.calls[i].After(cutoff) {
			break
		}
		count++
	}
	return count
}
