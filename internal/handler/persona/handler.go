package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ytakeda/execpersona/backend/internal/model/persona"
	"github.com/ytakeda/execpersona/backend/pkg/utils"
)

// Handler exposes read-only persona snapshots.
type Handler struct {
	personas persona.Store
}

// New creates the persona handler.
func New(personas persona.Store) *Handler {
	return &Handler{personas: personas}
}

// RegisterRoutes mounts the persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleList)
	r.Get("/personas/{personaID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.personas.FindByID(chi.URLParam(r, "personaID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}
