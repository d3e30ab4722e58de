// Package memory provides an in-memory session and history store for
// development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ytakeda/execpersona/backend/internal/model/chat"
	"github.com/ytakeda/execpersona/backend/internal/storage"
)

type sessionRecord struct {
	session chat.Session
	turns   []chat.Turn
	lastSeq int64
}

// Store keeps sessions and turns in maps guarded by one RWMutex. Append
// assigns both sequence numbers under the write lock, so a concurrent
// reader never observes half an exchange.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{sessions: make(map[string]*sessionRecord)}
}

// InsertSession stores a freshly created session.
func (s *Store) InsertSession(_ context.Context, sess chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &sessionRecord{session: sess}
	return nil
}

// FetchSession loads a session by identifier regardless of owner or state.
func (s *Store) FetchSession(_ context.Context, id string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return chat.Session{}, storage.ErrSessionNotFound
	}
	return rec.session, nil
}

// SessionsByOwner lists the owner's active sessions in creation order.
func (s *Store) SessionsByOwner(_ context.Context, ownerID string) ([]chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []chat.Session
	for _, rec := range s.sessions {
		if rec.session.OwnerID == ownerID && rec.session.State == chat.SessionActive {
			sessions = append(sessions, rec.session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// MarkTerminated flips a session to the terminated state. Turns remain.
func (s *Store) MarkTerminated(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return storage.ErrSessionNotFound
	}
	rec.session.State = chat.SessionTerminated
	return nil
}

// AppendExchange appends both turns of one exchange atomically.
func (s *Store) AppendExchange(_ context.Context, sessionID string, userTurn, assistantTurn chat.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return storage.ErrSessionNotFound
	}
	// A session terminated while an exchange was in flight accepts no
	// more turns.
	if rec.session.State != chat.SessionActive {
		return storage.ErrSessionNotFound
	}

	for _, turn := range []chat.Turn{userTurn, assistantTurn} {
		rec.lastSeq++
		turn.Seq = rec.lastSeq
		turn.SessionID = sessionID
		rec.turns = append(rec.turns, turn)
	}
	return nil
}

// RecentTurns returns at most max turns in chronological order, the most
// recent ones when the session holds more.
func (s *Store) RecentTurns(_ context.Context, sessionID string, max int) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}

	start := 0
	if len(rec.turns) > max {
		start = len(rec.turns) - max
	}
	return append([]chat.Turn(nil), rec.turns[start:]...), nil
}

// Turns returns the complete transcript in chronological order.
func (s *Store) Turns(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return append([]chat.Turn(nil), rec.turns...), nil
}
