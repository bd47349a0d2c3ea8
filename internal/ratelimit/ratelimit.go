package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether one more request for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Memory is a per-key token bucket limiter local to this process.
type Memory struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
	entries map[string]*entry
	swept   time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemory allows perWindow requests per key within window, refilled evenly.
func NewMemory(perWindow int, window time.Duration) *Memory {
	if perWindow <= 0 {
		perWindow = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Memory{
		limit:   rate.Limit(float64(perWindow) / window.Seconds()),
		burst:   perWindow,
		idle:    2 * window,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

func (m *Memory) Allow(_ context.Context, key string) bool {
	if key == "" {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	e, ok := m.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// sweep drops keys idle for longer than m.idle, at most once per idle period.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.swept) < m.idle {
		return
	}
	for k, e := range m.entries {
		if now.Sub(e.lastSeen) > m.idle {
			delete(m.entries, k)
		}
	}
	m.swept = now
}
