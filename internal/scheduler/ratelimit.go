package scheduler

import (
	"sync"
	"time"
)

type tokenBucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter is a per-venue token bucket. Every outbound poll, scheduled or
// forced, consumes one token from its venue's bucket.
type Limiter struct {
	mu  sync.Mutex
	m   map[string]*tokenBucket
	now func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{m: make(map[string]*tokenBucket), now: time.Now}
}

// Allow consumes one token for venue if available.
func (l *Limiter) Allow(venue string, capacity, refillPerSec float64) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.m[venue]
	if !ok {
		b = &tokenBucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[venue] = b
	}
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}
