package query

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers query and conversation routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/query", h.Ask)

	r.Route("/conversations", func(r chi.Router) {
		r.Post("/", h.CreateConversation)

		r.Route("/{conversation_id}", func(r chi.Router) {
			r.Get("/", h.GetConversation)
			r.Get("/messages", h.GetHistory)
			r.Delete("/", h.DeleteConversation)
		})
	})
}
