package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. The
// WebSocket endpoint is mounted separately in main so the hub stays
// independent of this package.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Get("/health", h.HandleHealth)
		r.Get("/state", h.GetState)
		r.Get("/artifacts/{id}", h.GetArtifact)
		r.Post("/upload-artifact", h.UploadArtifact)
	})
}
