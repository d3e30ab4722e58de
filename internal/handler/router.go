package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/ytakeda/execpersona/backend/internal/handler/chat"
	personaHandler "github.com/ytakeda/execpersona/backend/internal/handler/persona"
	middlewarePkg "github.com/ytakeda/execpersona/backend/internal/middleware"
	personaModel "github.com/ytakeda/execpersona/backend/internal/model/persona"
	chatService "github.com/ytakeda/execpersona/backend/internal/service/chat"
)

// NewRouter wires HTTP routes to the conversation core.
func NewRouter(personas personaModel.Store, orchestrator *chatService.Orchestrator) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		personaHandler.New(personas).RegisterRoutes(api)

		api.Group(func(authed chi.Router) {
			authed.Use(middlewarePkg.Identity)
			chatHandler.New(orchestrator).RegisterRoutes(authed)
		})
	})

	return r
}
