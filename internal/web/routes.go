package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/gatex/internal/web/handlers"
	"github.com/kozaktomas/gatex/internal/web/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes(deps Deps) {
	factsHandler := handlers.NewFactsHandler(deps.Pipeline)
	sessionsHandler := handlers.NewSessionsHandler(deps.Sessions)
	overstayHandler := handlers.NewOverstayHandler(deps.Scanner)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.APIToken))

		r.With(middleware.RateLimitByIP(s.config.IngestPerMin)).Post("/facts", factsHandler.Ingest)

		r.Get("/sessions/{batchID}", sessionsHandler.Get)
		r.Get("/sessions/{batchID}/thumbnail", sessionsHandler.Thumbnail)
		r.Get("/devices/{deviceID}/sessions", sessionsHandler.ListByDevice)

		r.Post("/overstay/sweep", overstayHandler.Sweep)
	})
}
