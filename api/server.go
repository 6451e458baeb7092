/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack and route definitions. This
  is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for an eventual admin frontend

ROUTE GROUPS:
  /health                Liveness probe (no auth, no store access)
  /api/messages          Chat webhook into the dispatcher
  /api/owners/{owner}/*  Ledger operations, allow-list checked per request

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// Health check. Touches nothing: it must answer even when the store
	// backend is unhappy.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.HandleMessage)

		r.Route("/owners/{owner}", func(r chi.Router) {
			r.Get("/summary", h.GetSummary)
			r.Get("/history", h.GetHistory)

			r.Route("/people/{name}", func(r chi.Router) {
				r.Get("/balance", h.GetBalance)
				r.Get("/detail", h.GetDetail)
				r.Post("/movements", h.RecordMovement)
				r.Delete("/", h.DeletePerson)
			})
		})
	})

	return r
}
