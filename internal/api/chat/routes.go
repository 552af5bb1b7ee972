package chat

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers chat routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", h.Upload)
		r.Get("/stream", h.Stream)
		r.Post("/reset", h.Reset)
		r.Post("/transcribe", h.Transcribe)
		r.Get("/get_session_id", h.SessionID)
	})
}
