package server

import (
	"context"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/plainly/plainly/internal/appid"
	"github.com/plainly/plainly/internal/observability"
	"github.com/plainly/plainly/internal/server/handlers"
)

func (s *Server) registerRoutes() {
	health := s.opts.Health
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/health/startup", health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", s.MetricsHandler)

	s.router.Route("/api", func(r chi.Router) {
		// Every verb reaches the simplify handler so it answers 405 itself.
		r.Handle("/simplify", &handlers.SimplifyHandler{
			Simplifier:   s.opts.Simplifier,
			MaxBodyBytes: s.opts.MaxBodyBytes,
		})
		r.Get("/options", handlers.OptionsHandler(s.opts.Options))
		if s.opts.DebugEndpoints && s.opts.Usage != nil {
			r.Get("/usage", handlers.UsageHandler(s.opts.Usage, s.opts.PremiumLimit, s.opts.Window, nil))
		}
	})

	s.registerAdminEndpoint()
}

// registerAdminEndpoint exposes POST /admin/signal when <PREFIX>ADMIN_TOKEN is set.
func (s *Server) registerAdminEndpoint() {
	envPrefix := appid.EnvPrefix(context.Background())
	adminToken := os.Getenv(envPrefix + "ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + envPrefix + "ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
	}
}
