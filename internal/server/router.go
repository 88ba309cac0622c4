package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the trigger endpoints. No request timeout middleware:
// the pipeline runs synchronously and can legitimately take a long time,
// bounded by the server's write timeout instead.
func NewRouter(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", h.Alive)
	r.Get("/health", h.Health)
	r.Get("/run", h.Run)
	r.Get("/generate-report", h.GenerateReport)
	r.Post("/sync-columns", h.SyncColumns)
	r.Post("/append-orders", h.AppendOrders)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{runID}", h.GetRun)

	return r
}
