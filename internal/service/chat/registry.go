package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	model "github.com/ytakeda/execpersona/backend/internal/model/chat"
	"github.com/ytakeda/execpersona/backend/internal/storage"
)

// Registry manages session lifecycle: creation, ownership-checked
// resolution, and soft termination.
type Registry struct {
	store SessionStore
}

// NewRegistry returns a Registry over the supplied store.
func NewRegistry(store SessionStore) *Registry {
	return &Registry{store: store}
}

// Create provisions a new active session. Identifiers are UUIDv4 and
// never reused; terminated sessions keep their row.
func (r *Registry) Create(ctx context.Context, identity, personaID string) (model.Session, error) {
	sess := model.Session{
		ID:        uuid.NewString(),
		OwnerID:   identity,
		PersonaID: personaID,
		State:     model.SessionActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.InsertSession(ctx, sess); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// Resolve loads an active session owned by identity. Absence, a
// terminated state, and foreign ownership all yield ErrNotFound.
func (r *Registry) Resolve(ctx context.Context, sessionID, identity string) (model.Session, error) {
	sess, err := r.store.FetchSession(ctx, sessionID)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	if sess.OwnerID != identity || sess.State != model.SessionActive {
		return model.Session{}, ErrNotFound
	}
	return sess, nil
}

// Terminate soft-deletes a session after the same ownership check as
// Resolve. History is retained.
func (r *Registry) Terminate(ctx context.Context, sessionID, identity string) error {
	if _, err := r.Resolve(ctx, sessionID, identity); err != nil {
		return err
	}
	if err := r.store.MarkTerminated(ctx, sessionID); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ListByOwner returns the identity's active sessions in creation order.
func (r *Registry) ListByOwner(ctx context.Context, identity string) ([]model.Session, error) {
	return r.store.SessionsByOwner(ctx, identity)
}
