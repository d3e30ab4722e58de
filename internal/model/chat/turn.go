package chat

import "time"

// Roles a turn may carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one immutable message within a session. Seq is assigned by the
// store when the turn is appended and increases monotonically per
// session; it is never reused, even after the session is terminated.
type Turn struct {
	Seq       int64     `json:"seq"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
