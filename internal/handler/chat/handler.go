package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ytakeda/execpersona/backend/internal/middleware"
	chatService "github.com/ytakeda/execpersona/backend/internal/service/chat"
	"github.com/ytakeda/execpersona/backend/pkg/utils"
)

// Handler exposes the conversation pipeline over HTTP.
type Handler struct {
	orchestrator *chatService.Orchestrator
}

// New creates the chat handler.
func New(orchestrator *chatService.Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/start", h.handleStart)
	r.Post("/chat/continue", h.handleContinue)
	r.Get("/chat/sessions", h.handleListSessions)
	r.Get("/chat/sessions/{sessionID}/messages", h.handleHistory)
	r.Delete("/chat/sessions/{sessionID}", h.handleTerminate)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity := middleware.IdentityFrom(r.Context())
	exchange, err := h.orchestrator.StartSession(r.Context(), identity, payload.PersonaID, payload.Message)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, exchange)
}

func (h *Handler) handleContinue(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	identity := middleware.IdentityFrom(r.Context())
	exchange, err := h.orchestrator.ContinueSession(r.Context(), identity, payload.SessionID, payload.Message)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, exchange)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())
	sessions, err := h.orchestrator.ListSessions(r.Context(), identity)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := h.orchestrator.History(r.Context(), identity, sessionID)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turns)
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.orchestrator.Terminate(r.Context(), identity, sessionID); err != nil {
		respondPipelineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "terminated"})
}

// respondPipelineError maps the orchestrator's error taxonomy to HTTP
// statuses. Anything unexpected becomes a generic 500; raw internals are
// logged upstream, never sent to the client.
func respondPipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrRateLimited):
		utils.RespondError(w, http.StatusTooManyRequests, "too many requests")
	case errors.Is(err, chatService.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, chatService.ErrPersonaRequired), errors.Is(err, chatService.ErrMessageRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
