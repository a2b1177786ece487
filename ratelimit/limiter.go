package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultWindow       = time.Minute
	DefaultMaxPerWindow = 60
)

type Config struct {
	Window       time.Duration
	MaxPerWindow int
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MaxPerWindow <= 0 {
		c.MaxPerWindow = DefaultMaxPerWindow
	}
	return c
}

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is a fixed-window counter per client key, kept in process memory.
type MemoryLimiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// WithClock replaces the time source, used by tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) > l.cfg.Window {
		w = &window{start: now}
		l.windows[key] = w
	}

	if w.count >= l.cfg.MaxPerWindow {
		return Decision{
			Allowed:    false,
			RetryAfter: w.start.Add(l.cfg.Window).Sub(now),
		}, nil
	}

	w.count++

	return Decision{
		Allowed:   true,
		Remaining: l.cfg.MaxPerWindow - w.count,
	}, nil
}

// Count returns the number of requests admitted in the key's current window.
func (l *MemoryLimiter) Count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().Sub(w.start) > l.cfg.Window {
		return 0
	}
	return w.count
}

// Prune drops windows that have already expired and returns how many were removed.
func (l *MemoryLimiter) Prune() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if now.Sub(w.start) > l.cfg.Window {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// RunPruning prunes expired windows every interval until ctx is done.
func (l *MemoryLimiter) RunPruning(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Prune()
		}
	}
}
