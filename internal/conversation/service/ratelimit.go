package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SessionRateLimiter throttles inbound messages per session key. Limiters are
// kept in a sync.Map and pruned lazily; an abandoned session costs one small
// struct until cleanup runs.
type SessionRateLimiter struct {
	limiters sync.Map
	limit    rate.Limit
	burst    int
}

type sessionLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

// NewSessionRateLimiter allows maxMessages per window for each session key.
func NewSessionRateLimiter(maxMessages int, window time.Duration) *SessionRateLimiter {
	if maxMessages < 1 {
		maxMessages = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	l := &SessionRateLimiter{
		limit: rate.Limit(float64(maxMessages) / window.Seconds()),
		burst: maxMessages,
	}

	go l.cleanup(window)

	return l
}

// Allow reports whether one more message may be accepted for the session.
func (l *SessionRateLimiter) Allow(sessionKey string) bool {
	entry := l.entryFor(sessionKey)

	entry.mu.Lock()
	entry.lastSeen = time.Now()
	entry.mu.Unlock()

	return entry.limiter.Allow()
}

func (l *SessionRateLimiter) entryFor(sessionKey string) *sessionLimiterEntry {
	if v, ok := l.limiters.Load(sessionKey); ok {
		return v.(*sessionLimiterEntry)
	}

	entry := &sessionLimiterEntry{
		limiter:  rate.NewLimiter(l.limit, l.burst),
		lastSeen: time.Now(),
	}
	actual, _ := l.limiters.LoadOrStore(sessionKey, entry)
	return actual.(*sessionLimiterEntry)
}

func (l *SessionRateLimiter) cleanup(window time.Duration) {
	interval := 10 * window
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-interval)
		l.limiters.Range(func(key, value any) bool {
			entry := value.(*sessionLimiterEntry)
			entry.mu.Lock()
			stale := entry.lastSeen.Before(cutoff)
			entry.mu.Unlock()
			if stale {
				l.limiters.Delete(key)
			}
			return true
		})
	}
}
