// Package server hosts the simulated feed API for mock-serve: a chi root with
// request IDs, metrics, panic recovery and the health, version and metrics
// endpoints, with the API mounted under /v1.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/brainboard/brainboard/internal/errors"
	"github.com/brainboard/brainboard/internal/observability"
	"github.com/brainboard/brainboard/internal/server/handlers"
	servermw "github.com/brainboard/brainboard/internal/server/middleware"
)

// APIPrefix is where the feed API is mounted.
const APIPrefix = "/v1"

// Options configures New.
type Options struct {
	Host    string
	Port    int
	Version string
	// API serves everything under APIPrefix.
	API http.Handler
	// Checks are registered with the health manager.
	Checks map[string]handlers.HealthChecker
	// AdminToken enables POST /admin/signal when non-empty.
	AdminToken string
}

// Server is the mock-serve HTTP host.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	listener net.Listener
	host     string
	port     int
	health   *handlers.HealthManager
}

// New builds the router. It does not listen until Start.
func New(opts Options) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	version := opts.Version
	if version == "" {
		version = handlers.AppVersion
	}
	health := handlers.NewHealthManager(version)
	for name, checker := range opts.Checks {
		health.RegisterChecker(name, checker)
	}

	s := &Server{router: r, host: opts.Host, port: opts.Port, health: health}
	s.registerRoutes(opts)
	return s
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	observability.Server().Info("Starting HTTP server",
		zap.String("host", s.host),
		zap.Int("port", s.port),
		zap.String("addr", s.Addr()))

	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Listen binds the address so Addr reports the real port before Start.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.host, fmt.Sprint(s.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = ln
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = tcp.Port
	}
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	observability.Server().Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns host:port, with the bound port once listening.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.host, fmt.Sprint(s.port))
}

func (s *Server) Port() int {
	return s.port
}
