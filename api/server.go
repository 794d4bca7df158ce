/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/reps/*           Representative and route management
  /api/customers/*      Customer management
  /api/visits/*         Visit plan status updates
  /api/admin/*          Admin operations (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Representative routes
		r.Route("/reps", func(r chi.Router) {
			r.Get("/", h.ListRepresentatives)
			r.Post("/", h.CreateRepresentative)
			r.Get("/{id}", h.GetRepresentative)
			r.Get("/{id}/route", h.GetRoute)
			r.Put("/{id}/route", h.SaveRoute)
			r.Get("/{id}/visits", h.ListVisits)
			r.Get("/{id}/coverage", h.GetCoverage)
		})

		// Customer routes
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
		})

		// Visit plan routes
		r.Route("/visits", func(r chi.Router) {
			r.Post("/{id}/complete", h.CompleteVisit)
			r.Post("/{id}/cancel", h.CancelVisit)
		})

		// Admin routes (dev only)
		r.Route("/admin", func(r chi.Router) {
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Route Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Route Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/reps">/api/reps</a> - List representatives</li>
<li><a href="/api/customers">/api/customers</a> - List customers</li>
</ul>
</body>
</html>`))
	})

	return r
}
