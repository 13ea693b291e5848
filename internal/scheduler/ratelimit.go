package scheduler

import (
	"context"
	"sync"
	"time"
)

// Limiter spaces requests so the whole pool stays under a
// requests-per-minute ceiling. All workers share one limiter.
type Limiter struct {
	interval   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

// NewLimiter builds a limiter for the given per-minute ceiling.
func NewLimiter(requestsPerMinute int) *Limiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	return &Limiter{
		interval: time.Minute / time.Duration(requestsPerMinute),
	}
}

// Wait blocks until the next request slot opens or the context ends.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := time.Since(l.lastAction)
	if elapsed < l.interval {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.interval - elapsed):
		}
	}

	l.lastAction = time.Now()
	return nil
}
