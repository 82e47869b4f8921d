package server

import (
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/observability"
	"github.com/brainboard/brainboard/internal/server/handlers"
)

func (s *Server) registerRoutes(opts Options) {
	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/health/live", s.health.EndpointHandler("live", 2*time.Second))
	s.router.Get("/health/ready", s.health.EndpointHandler("ready", 5*time.Second))
	s.router.Get("/health/startup", s.health.EndpointHandler("startup", 3*time.Second))

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	if opts.API != nil {
		s.router.Mount(APIPrefix, opts.API)
	}

	s.registerAdminEndpoint(opts.AdminToken)
}

func (s *Server) registerAdminEndpoint(token string) {
	logger := observability.Server()
	if token == "" {
		logger.Debug("Admin signal endpoint disabled (no BRAINBOARD_ADMIN_TOKEN set)")
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: token,
		RateLimit: 10,
		RateBurst: 5,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	logger.Info("Admin signal endpoint enabled",
		zap.String("path", "/admin/signal"),
		zap.String("rate_limit", "10/min, burst 5"))
}
