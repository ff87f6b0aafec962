package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the API router.
//
// Identity arrives as an X-User-ID header resolved by the upstream auth
// collaborator; /api/admin and the match touch hook are expected to be
// reachable only from the internal network.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		// User-scoped routes
		r.Group(func(r chi.Router) {
			r.Use(h.RequireUser)

			r.Post("/swipe", h.Swipe)
			r.Get("/discover", h.Discover)
			r.Get("/matches", h.Matches)
			r.Get("/subscription/status", h.SubscriptionStatus)
		})

		// Collaborator / operator routes
		r.Post("/matches/{matchID}/touch", h.TouchMatch)
		r.Post("/admin/train", h.TrainModel)
	})

	return r
}
