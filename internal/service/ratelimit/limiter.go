// Package ratelimit implements per-identity sliding-window request
// admission.
package ratelimit

import (
	"sync"
	"time"
)

// Options configure a Limiter.
type Options struct {
	// Limit is the maximum number of admitted requests per window.
	Limit int
	// Window is the trailing window size.
	Window time.Duration
	// SweepInterval controls how often identities with empty windows are
	// evicted. Zero disables the janitor.
	SweepInterval time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type window struct {
	mu       sync.Mutex
	instants []time.Time
}

// Limiter admits or rejects requests per identity. Each identity has its
// own lock, so contention between identities is limited to the map
// lookup.
type Limiter struct {
	mu      sync.RWMutex
	windows map[string]*window

	limit  int
	window time.Duration
	now    func() time.Time

	done chan struct{}
	once sync.Once
}

// New builds a Limiter and starts its janitor when a sweep interval is
// configured.
func New(opts Options) *Limiter {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	l := &Limiter{
		windows: make(map[string]*window),
		limit:   opts.Limit,
		window:  opts.Window,
		now:     now,
		done:    make(chan struct{}),
	}

	if opts.SweepInterval > 0 {
		go l.janitor(opts.SweepInterval)
	}
	return l
}

// Admit records the request instant and returns true when the identity
// is under its limit. A rejected request is not recorded, so rejections
// never extend the backoff.
func (l *Limiter) Admit(identity string) bool {
	w := l.windowFor(identity)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	w.prune(now.Add(-l.window))

	if len(w.instants) >= l.limit {
		return false
	}
	w.instants = append(w.instants, now)
	return true
}

// Close stops the janitor.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}

func (l *Limiter) windowFor(identity string) *window {
	l.mu.RLock()
	w, ok := l.windows[identity]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.windows[identity]; ok {
		return w
	}
	w = &window{}
	l.windows[identity] = w
	return w
}

// prune drops instants at or before cutoff. The slice stays ordered, so
// the first surviving entry bounds the scan.
func (w *window) prune(cutoff time.Time) {
	keep := 0
	for keep < len(w.instants) && !w.instants[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		w.instants = append(w.instants[:0], w.instants[keep:]...)
	}
}

func (l *Limiter) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep evicts identities whose windows have fully expired, bounding the
// map for long-running processes.
func (l *Limiter) sweep() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for identity, w := range l.windows {
		w.mu.Lock()
		w.prune(cutoff)
		empty := len(w.instants) == 0
		w.mu.Unlock()
		if empty {
			delete(l.windows, identity)
		}
	}
}
