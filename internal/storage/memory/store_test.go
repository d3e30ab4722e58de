package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ytakeda/execpersona/backend/internal/model/chat"
	"github.com/ytakeda/execpersona/backend/internal/storage"
	"github.com/ytakeda/execpersona/backend/internal/storage/memory"
)

func newSession(t *testing.T, s *memory.Store, id string) chat.Session {
	t.Helper()
	sess := chat.Session{
		ID:        id,
		OwnerID:   "alice",
		PersonaID: "ceo-1",
		State:     chat.SessionActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.InsertSession(context.Background(), sess); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	return sess
}

func appendExchange(t *testing.T, s *memory.Store, sessionID, userText, assistantText string) {
	t.Helper()
	err := s.AppendExchange(context.Background(), sessionID,
		chat.Turn{Role: chat.RoleUser, Content: userText},
		chat.Turn{Role: chat.RoleAssistant, Content: assistantText},
	)
	if err != nil {
		t.Fatalf("AppendExchange: %v", err)
	}
}

func TestAppendAssignsSequence(t *testing.T) {
	s := memory.New()
	newSession(t, s, "s1")

	appendExchange(t, s, "s1", "hello", "hi")
	appendExchange(t, s, "s1", "how are you", "fine")

	turns, err := s.Turns(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		if turn.Seq != int64(i+1) {
			t.Fatalf("turn %d has seq %d", i, turn.Seq)
		}
	}
}

func TestRecentBoundsAndOrder(t *testing.T) {
	s := memory.New()
	newSession(t, s, "s1")

	for i := 0; i < 5; i++ {
		appendExchange(t, s, "s1", "q", "a")
	}

	turns, err := s.RecentTurns(context.Background(), "s1", 4)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	// Most recent four of ten, oldest first.
	if turns[0].Seq != 7 || turns[3].Seq != 10 {
		t.Fatalf("unexpected window: first seq %d last seq %d", turns[0].Seq, turns[3].Seq)
	}
	for i := 1; i < len(turns); i++ {
		if turns[i].Seq <= turns[i-1].Seq {
			t.Fatalf("turns out of order at %d", i)
		}
	}
}

func TestRecentFewerThanMax(t *testing.T) {
	s := memory.New()
	newSession(t, s, "s1")
	appendExchange(t, s, "s1", "hello", "hi")

	turns, err := s.RecentTurns(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
}

func TestUnknownSession(t *testing.T) {
	s := memory.New()

	if _, err := s.RecentTurns(context.Background(), "missing", 10); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	err := s.AppendExchange(context.Background(), "missing",
		chat.Turn{Role: chat.RoleUser, Content: "x"},
		chat.Turn{Role: chat.RoleAssistant, Content: "y"},
	)
	if !errors.Is(err, storage.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAppendAtomicUnderConcurrentReads(t *testing.T) {
	s := memory.New()
	newSession(t, s, "s1")

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			turns, err := s.Turns(context.Background(), "s1")
			if err != nil {
				t.Errorf("Turns: %v", err)
				return
			}
			// Exchanges are pairs; an odd count means a half-visible append.
			if len(turns)%2 != 0 {
				t.Errorf("observed %d turns, exchange partially visible", len(turns))
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		appendExchange(t, s, "s1", "q", "a")
	}
	close(done)
	wg.Wait()
}

func TestSessionsByOwnerCreationOrder(t *testing.T) {
	s := memory.New()
	base := time.Now().UTC()

	// Insert out of creation order; listing must sort by CreatedAt.
	for _, spec := range []struct {
		id     string
		offset time.Duration
	}{
		{"s3", 2 * time.Minute},
		{"s1", 0},
		{"s2", time.Minute},
	} {
		sess := chat.Session{
			ID:        spec.id,
			OwnerID:   "alice",
			PersonaID: "ceo-1",
			State:     chat.SessionActive,
			CreatedAt: base.Add(spec.offset),
		}
		if err := s.InsertSession(context.Background(), sess); err != nil {
			t.Fatalf("InsertSession: %v", err)
		}
	}

	sessions, err := s.SessionsByOwner(context.Background(), "alice")
	if err != nil {
		t.Fatalf("SessionsByOwner: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	for i, want := range []string{"s1", "s2", "s3"} {
		if sessions[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, sessions[i].ID)
		}
	}
}

func TestAppendToTerminatedSession(t *testing.T) {
	s := memory.New()
	newSession(t, s, "s1")
	appendExchange(t, s, "s1", "hello", "hi")

	if err := s.MarkTerminated(context.Background(), "s1"); err != nil {
		t.Fatalf("MarkTerminated: %v", err)
	}

	err := s.AppendExchange(context.Background(), "s1",
		chat.Turn{Role: chat.RoleUser, Content: "still there?"},
		chat.Turn{Role: chat.RoleAssistant, Content: "..."},
	)
	if !errors.Is(err, storage.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	turns, err := s.Turns(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("terminated session gained turns, have %d", len(turns))
	}
}

func TestTerminateKeepsHistory(t *testing.T) {
	s := memory.New()
	newSession(t, s, "s1")
	appendExchange(t, s, "s1", "hello", "hi")

	if err := s.MarkTerminated(context.Background(), "s1"); err != nil {
		t.Fatalf("MarkTerminated: %v", err)
	}

	sess, err := s.FetchSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("FetchSession: %v", err)
	}
	if sess.State != chat.SessionTerminated {
		t.Fatalf("expected terminated state, got %s", sess.State)
	}

	turns, err := s.Turns(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Turns after terminate: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("history should be retained, got %d turns", len(turns))
	}
}
