package ratelimit

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickwarner/consentstudio/internal/observability"
)

// Config holds the configuration for rate limiting.
type Config struct {
	Capacity   int  // burst allowance
	RefillRate int  // tokens added per second
	Enabled    bool // when false every request is allowed
}

// SessionLimiter keeps one token bucket per session and operation. Buckets
// are created lazily on first access.
type SessionLimiter struct {
	buckets map[string]*TokenBucket
	mu      sync.RWMutex
	config  Config
	metrics observability.MetricsRegistry
	now     func() time.Time
}

// NewSessionLimiter creates a limiter with the given configuration.
func NewSessionLimiter(config Config, metrics observability.MetricsRegistry) *SessionLimiter {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &SessionLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
		metrics: metrics,
		now:     time.Now,
	}
}

func bucketKey(sessionID, op string) string {
	return sessionID + "/" + op
}

// Allow reports whether op may run for the session now.
func (l *SessionLimiter) Allow(sessionID, op string) bool {
	if l == nil || !l.config.Enabled {
		return true
	}
	key := bucketKey(sessionID, op)

	l.mu.RLock()
	bucket, exists := l.buckets[key]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		bucket, exists = l.buckets[key]
		if !exists {
			bucket = newTokenBucket(l.config.Capacity, l.config.RefillRate, l.now)
			l.buckets[key] = bucket
		}
		l.mu.Unlock()
	}

	allowed := bucket.Allow()
	if !allowed {
		l.metrics.IncrementRateLimitHits(op)
	}
	return allowed
}

// Forget drops every bucket of a session, typically when it is closed.
func (l *SessionLimiter) Forget(sessionID string) {
	if l == nil {
		return
	}
	prefix := sessionID + "/"
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.buckets {
		if strings.HasPrefix(key, prefix) {
			delete(l.buckets, key)
		}
	}
}

// Prune drops buckets unused for longer than idle and returns how many were
// removed.
func (l *SessionLimiter) Prune(idle time.Duration) int {
	if l == nil {
		return 0
	}
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for key, b := range l.buckets {
		if b.idleSince().Before(cutoff) {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}

// Stats returns a snapshot of rate limiting activity per session and
// operation.
func (l *SessionLimiter) Stats() map[string]Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]Stats, len(l.buckets))
	for key, bucket := range l.buckets {
		hits, total := bucket.Stats()
		hitRate := 0.0
		if total > 0 {
			hitRate = float64(hits) / float64(total)
		}
		stats[key] = Stats{Key: key, Hits: hits, Total: total, HitRate: hitRate}
	}
	return stats
}

// Stats contains rate limiting statistics for one session operation.
type Stats struct {
	Key     string  `json:"key"`
	Hits    int64   `json:"hits"`
	Total   int64   `json:"total"`
	HitRate float64 `json:"hitRate"`
}

func (s Stats) String() string {
	return fmt.Sprintf("%s: %d/%d hits (%.2f%%)", s.Key, s.Hits, s.Total, s.HitRate*100)
}
