package chat

import "time"

// SessionState is the lifecycle state of a conversation.
type SessionState string

const (
	// SessionActive accepts new exchanges.
	SessionActive SessionState = "active"
	// SessionTerminated is the terminal state after a soft delete.
	// History is retained; the state never flips back.
	SessionTerminated SessionState = "terminated"
)

// Session represents one ongoing conversation between an identity and a
// persona. The persona reference is fixed at creation.
type Session struct {
	ID        string       `json:"sessionId"`
	OwnerID   string       `json:"-"`
	PersonaID string       `json:"personaId"`
	State     SessionState `json:"-"`
	CreatedAt time.Time    `json:"createdAt"`
}
