package chat

import (
	"context"

	model "github.com/ytakeda/execpersona/backend/internal/model/chat"
	"github.com/ytakeda/execpersona/backend/internal/service/ai"
)

// SessionStore persists session records.
type SessionStore interface {
	InsertSession(ctx context.Context, sess model.Session) error
	FetchSession(ctx context.Context, id string) (model.Session, error)
	SessionsByOwner(ctx context.Context, ownerID string) ([]model.Session, error)
	MarkTerminated(ctx context.Context, id string) error
}

// HistoryStore persists the append-only turn log. AppendExchange must be
// atomic: a concurrent reader sees both turns of an exchange or neither.
type HistoryStore interface {
	AppendExchange(ctx context.Context, sessionID string, userTurn, assistantTurn model.Turn) error
	RecentTurns(ctx context.Context, sessionID string, max int) ([]model.Turn, error)
	Turns(ctx context.Context, sessionID string) ([]model.Turn, error)
}

// Store combines both persistence concerns; the SQLite and memory
// implementations satisfy it.
type Store interface {
	SessionStore
	HistoryStore
}

// Admitter decides whether a request from an identity may proceed.
type Admitter interface {
	Admit(identity string) bool
}

// Gateway fronts the external generation and synthesis capabilities.
type Gateway interface {
	GenerateText(ctx context.Context, pc ai.PromptContext) (string, error)
	SynthesizeVoice(ctx context.Context, text, voiceID string) (string, error)
}
