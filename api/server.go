/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for form frontends

ROUTE GROUPS:
  /api/derive               Generic derivation
  /api/allotments/*         Allotment management and allocation
  /api/tradelines/*         Trade-line derivation
  /api/incentives/*         Incentive derivation
  /api/scenarios/*          Demo scenarios
  /api/health               Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
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
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/derive", h.DeriveField)
		r.Get("/health", h.Health)

		// Allotment routes
		r.Route("/allotments", func(r chi.Router) {
			r.Get("/", h.ListAllotments)
			r.Post("/", h.CreateAllotment)
			r.Get("/{id}", h.GetAllotment)
			r.Get("/{id}/items", h.GetItems)
			r.Post("/{id}/preview", h.PreviewAllocation)
			r.Get("/{id}/allocations", h.GetAllocations)
			r.Post("/{id}/allocations", h.ConfirmAllocation)
		})

		// Trade-line routes
		r.Route("/tradelines", func(r chi.Router) {
			r.Post("/derive", h.TradelineDerive)
		})

		// Incentive routes
		r.Route("/incentives", func(r chi.Router) {
			r.Post("/derive", h.IncentiveDerive)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
