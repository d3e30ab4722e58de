package chat

import "errors"

var (
	// ErrRateLimited rejects a request before any state changes. The
	// client must back off.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNotFound covers a session or persona that is absent, terminated,
	// or owned by someone else. The three cases are indistinguishable on
	// purpose so callers cannot probe for other identities' sessions.
	ErrNotFound = errors.New("not found")

	// ErrPersonaRequired and ErrMessageRequired reject malformed input.
	ErrPersonaRequired = errors.New("persona id is required")
	ErrMessageRequired = errors.New("message is required")
)
