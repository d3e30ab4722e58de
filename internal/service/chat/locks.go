package chat

import "sync"

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks serializes work per session without a global lock.
// Entries are refcounted and removed when the last holder releases, so
// the map does not grow with dead sessions.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the session lock is held and returns the release
// function.
func (l *sessionLocks) acquire(sessionID string) func() {
	l.mu.Lock()
	entry, ok := l.entries[sessionID]
	if !ok {
		entry = &lockEntry{}
		l.entries[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, sessionID)
		}
		l.mu.Unlock()
	}
}
