// Package api exposes the session contract over HTTP.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/berth-dev/hone/internal/orchestrator"
)

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(orch *orchestrator.Orchestrator, apiKey string, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	sessionH := NewSessionHandler(orch)

	r.Get("/health", Health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionH.List)
			r.Post("/", sessionH.Create)
			r.Get("/{id}", sessionH.Get)
			r.Delete("/{id}", sessionH.Delete)
			r.Post("/{id}/resume", sessionH.Resume)
			r.Post("/{id}/advance", sessionH.Advance)
			r.Post("/{id}/chat", sessionH.Chat)
		})
	})

	return r
}
