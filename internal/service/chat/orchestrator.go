package chat

import (
	"context"
	"errors"
	"log"
	"time"

	model "github.com/ytakeda/execpersona/backend/internal/model/chat"
	"github.com/ytakeda/execpersona/backend/internal/model/persona"
	"github.com/ytakeda/execpersona/backend/internal/service/ai"
	"github.com/ytakeda/execpersona/backend/internal/storage"
)

// DefaultFallbackReply is returned when text generation fails. It is a
// real reply, persisted to history like any other assistant turn, so the
// conversation stays coherent. Raw provider errors never reach the user.
const DefaultFallbackReply = "I'm sorry, I can't give you a proper answer right now. Please ask me again in a little while."

const defaultHistoryWindow = 10

// Exchange is the composite result of one conversation request.
type Exchange struct {
	ReplyText string `json:"message"`
	SessionID string `json:"sessionId"`
	AudioRef  string `json:"audioUrl,omitempty"`
}

// OrchestratorOptions tune the orchestrator.
type OrchestratorOptions struct {
	// HistoryWindow is how many recent turns feed context assembly.
	HistoryWindow int
	// FallbackReply overrides DefaultFallbackReply.
	FallbackReply string
}

// Orchestrator runs the conversation pipeline: admit, resolve session,
// read history, assemble context, generate, persist, synthesize voice.
type Orchestrator struct {
	limiter   Admitter
	personas  persona.Store
	registry  *Registry
	history   HistoryStore
	assembler *ai.Assembler
	gateway   Gateway

	locks         *sessionLocks
	historyWindow int
	fallback      string
}

// NewOrchestrator wires the pipeline. All collaborators are constructed
// up front and injected; there is no lazy initialization on the request
// path.
func NewOrchestrator(limiter Admitter, personas persona.Store, registry *Registry, history HistoryStore, assembler *ai.Assembler, gateway Gateway, opts OrchestratorOptions) *Orchestrator {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	if opts.FallbackReply == "" {
		opts.FallbackReply = DefaultFallbackReply
	}
	return &Orchestrator{
		limiter:       limiter,
		personas:      personas,
		registry:      registry,
		history:       history,
		assembler:     assembler,
		gateway:       gateway,
		locks:         newSessionLocks(),
		historyWindow: opts.HistoryWindow,
		fallback:      opts.FallbackReply,
	}
}

// StartSession opens a new conversation with a persona and runs the
// first exchange.
func (o *Orchestrator) StartSession(ctx context.Context, identity, personaID, message string) (Exchange, error) {
	if personaID == "" {
		return Exchange{}, ErrPersonaRequired
	}
	if message == "" {
		return Exchange{}, ErrMessageRequired
	}
	if !o.limiter.Admit(identity) {
		return Exchange{}, ErrRateLimited
	}

	snap, ok := o.personas.FindByID(personaID)
	if !ok {
		return Exchange{}, ErrNotFound
	}

	sess, err := o.registry.Create(ctx, identity, personaID)
	if err != nil {
		return Exchange{}, err
	}

	return o.converse(ctx, sess, snap, message)
}

// ContinueSession runs one more exchange on an existing conversation.
func (o *Orchestrator) ContinueSession(ctx context.Context, identity, sessionID, message string) (Exchange, error) {
	if message == "" {
		return Exchange{}, ErrMessageRequired
	}
	if !o.limiter.Admit(identity) {
		return Exchange{}, ErrRateLimited
	}

	sess, err := o.registry.Resolve(ctx, sessionID, identity)
	if err != nil {
		return Exchange{}, err
	}

	snap, ok := o.personas.FindByID(sess.PersonaID)
	if !ok {
		return Exchange{}, ErrNotFound
	}

	return o.converse(ctx, sess, snap, message)
}

// converse holds the session lock across the read-generate-append
// sequence so concurrent exchanges on one session serialize instead of
// interleaving. Different sessions proceed in parallel.
func (o *Orchestrator) converse(ctx context.Context, sess model.Session, snap persona.Snapshot, message string) (Exchange, error) {
	release := o.locks.acquire(sess.ID)
	defer release()

	history, err := o.history.RecentTurns(ctx, sess.ID, o.historyWindow)
	if err != nil {
		// A reachable-but-failing store is an error, never "no history".
		if errors.Is(err, storage.ErrSessionNotFound) {
			return Exchange{}, ErrNotFound
		}
		return Exchange{}, err
	}

	pc := o.assembler.Build(snap, history, message)

	reply, err := o.gateway.GenerateText(ctx, pc)
	if err != nil {
		if ctx.Err() != nil {
			// The caller is gone; do not persist a reply nobody received.
			return Exchange{}, ctx.Err()
		}
		log.Printf("[chat] generation failed for session=%s persona=%s: %v", sess.ID, snap.ID, err)
		reply = o.fallback
	}

	if ctx.Err() != nil {
		return Exchange{}, ctx.Err()
	}

	now := time.Now().UTC()
	userTurn := model.Turn{Role: model.RoleUser, Content: message, CreatedAt: now}
	assistantTurn := model.Turn{Role: model.RoleAssistant, Content: reply, CreatedAt: now}
	if err := o.history.AppendExchange(ctx, sess.ID, userTurn, assistantTurn); err != nil {
		// The session may have been terminated while this exchange was
		// in flight; surface that as the usual not-found signal.
		if errors.Is(err, storage.ErrSessionNotFound) {
			return Exchange{}, ErrNotFound
		}
		// Losing history silently would corrupt later context assembly.
		return Exchange{}, err
	}

	result := Exchange{ReplyText: reply, SessionID: sess.ID}

	if snap.HasVoice() {
		audioRef, err := o.gateway.SynthesizeVoice(ctx, reply, snap.VoiceID)
		if err != nil {
			// Voice is best-effort: a text-only success beats a failure.
			if !errors.Is(err, ai.ErrVoiceUnavailable) {
				log.Printf("[chat] voice synthesis failed for session=%s: %v", sess.ID, err)
			}
		} else {
			result.AudioRef = audioRef
		}
	}

	return result, nil
}

// ListSessions returns the identity's active sessions.
func (o *Orchestrator) ListSessions(ctx context.Context, identity string) ([]model.Session, error) {
	if !o.limiter.Admit(identity) {
		return nil, ErrRateLimited
	}
	return o.registry.ListByOwner(ctx, identity)
}

// History returns the full transcript of a session the identity owns.
func (o *Orchestrator) History(ctx context.Context, identity, sessionID string) ([]model.Turn, error) {
	if !o.limiter.Admit(identity) {
		return nil, ErrRateLimited
	}
	if _, err := o.registry.Resolve(ctx, sessionID, identity); err != nil {
		return nil, err
	}
	return o.history.Turns(ctx, sessionID)
}

// Terminate soft-deletes a session the identity owns.
func (o *Orchestrator) Terminate(ctx context.Context, identity, sessionID string) error {
	if !o.limiter.Admit(identity) {
		return ErrRateLimited
	}
	return o.registry.Terminate(ctx, sessionID, identity)
}
