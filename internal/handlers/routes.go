package handlers

import (
	"github.com/go-chi/chi/v5"
)

// Routes registers the versioned API under r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingest/events", h.IngestEvents)
		r.Post("/derive", h.DeriveFeatures)

		r.Get("/players/{playerID}/features", h.GetPlayerFeatures)
		r.Get("/players/{playerID}/summary", h.GetPlayerSummary)

		r.Post("/predictions", h.CreatePrediction)
		r.Get("/predictions/latest/{propType}", h.GetLatestPredictions)

		r.Get("/identity", h.ResolveIdentity)
		r.Get("/identity/unresolved", h.GetUnresolvedIdentities)
	})
}
