package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps attempt records in process memory. Each key owns
// its own lock, so concurrent checks for different keys never block each
// other, while read-modify-write for one key is serialized. A per-record
// timer clears stale state so an idle process does not accumulate keys.
//
// Used for development and tests; deployments with more than one
// replica want the redis backend.
type MemoryLimiter struct {
	quota  int
	window time.Duration

	mu   sync.Mutex
	keys map[string]*record

	// overridable in tests
	now func() time.Time
}

type record struct {
	mu       sync.Mutex
	attempts []time.Time
	timer    *time.Timer
}

func NewMemoryLimiter(quota int, window time.Duration) *MemoryLimiter {
	if quota <= 0 {
		quota = DefaultQuota
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryLimiter{
		quota:  quota,
		window: window,
		keys:   make(map[string]*record),
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Check(ctx context.Context, key string) (Result, error) {
	rec := l.acquire(key)
	defer rec.mu.Unlock()

	now := l.now()
	active := trim(rec.attempts, now.Add(-l.window))

	allowed := len(active) < l.quota
	if allowed {
		active = append(active, now)
		// Self-cleaning: revisit the record once the newest attempt has
		// aged out.
		if rec.timer != nil {
			rec.timer.Stop()
		}
		rec.timer = time.AfterFunc(l.window, func() { l.expire(key) })
	}
	rec.attempts = active

	remaining := l.quota - len(active)
	if remaining < 0 {
		remaining = 0
	}

	return Result{Allowed: allowed, Remaining: remaining}, nil
}

// acquire returns the locked record for key, creating it if needed. The
// lookup is revalidated after locking because expire may have reclaimed
// the record in between.
func (l *MemoryLimiter) acquire(key string) *record {
	for {
		l.mu.Lock()
		rec, ok := l.keys[key]
		if !ok {
			rec = &record{}
			l.keys[key] = rec
		}
		l.mu.Unlock()

		rec.mu.Lock()
		l.mu.Lock()
		current := l.keys[key]
		l.mu.Unlock()
		if current == rec {
			return rec
		}
		rec.mu.Unlock()
	}
}

// expire drops aged-out attempts for a key. If anything is still active
// it reschedules itself for the next boundary; otherwise the record is
// deleted entirely.
func (l *MemoryLimiter) expire(key string) {
	l.mu.Lock()
	rec, ok := l.keys[key]
	l.mu.Unlock()
	if !ok {
		return
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	now := l.now()
	active := trim(rec.attempts, now.Add(-l.window))

	if len(active) == 0 {
		if rec.timer != nil {
			rec.timer.Stop()
		}
		l.mu.Lock()
		if l.keys[key] == rec {
			delete(l.keys, key)
		}
		l.mu.Unlock()
		return
	}

	rec.attempts = active
	rec.timer = time.AfterFunc(active[0].Add(l.window).Sub(now), func() { l.expire(key) })
}

// trim returns the attempts newer than cutoff, preserving order.
func trim(attempts []time.Time, cutoff time.Time) []time.Time {
	active := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(cutoff) {
			active = append(active, t)
		}
	}
	return active
}
