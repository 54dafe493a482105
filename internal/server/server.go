package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/plainly/plainly/internal/errors"
	"github.com/plainly/plainly/internal/observability"
	"github.com/plainly/plainly/internal/server/handlers"
	servermw "github.com/plainly/plainly/internal/server/middleware"
)

// Options wires the domain components into the HTTP server.
type Options struct {
	Host string
	Port int

	Simplifier   handlers.Simplifier
	Usage        handlers.UsageSnapshotter
	Health       *handlers.HealthManager
	Options      handlers.OptionsResponse
	PremiumLimit int
	Window       time.Duration

	// DebugEndpoints enables GET /api/usage.
	DebugEndpoints bool
	MetricsPort    int
	// UpstreamTimeout sizes the write timeout so a slow upstream reply can still be delivered.
	UpstreamTimeout time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	MaxBodyBytes    int64
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	opts   Options
}

// New creates a new HTTP server instance
func New(opts Options) *Server {
	if opts.Health == nil {
		opts.Health = handlers.NewHealthManager(handlers.CurrentBuildInfo().Version)
	}

	r := chi.NewRouter()

	// RequestID first for correlation, Recovery innermost so panics still get metrics.
	r.Use(servermw.RequestID)
	r.Use(servermw.ClientID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("Method not allowed"))
	})

	s := &Server{
		router: r,
		opts:   opts,
	}

	handlers.SetHTTPErrorResponder(HandleError)
	s.registerRoutes()

	return s
}

// HandleError central handler for all errors
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)

	upstream := s.opts.UpstreamTimeout
	if upstream <= 0 {
		upstream = 30 * time.Second
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       durationOr(s.opts.ReadTimeout, 30*time.Second),
		WriteTimeout:      upstream + 15*time.Second,
		IdleTimeout:       durationOr(s.opts.IdleTimeout, 120*time.Second),
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.opts.Host),
			zap.Int("port", s.opts.Port),
			zap.String("addr", addr),
			zap.Bool("debug_endpoints", s.opts.DebugEndpoints))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.opts.Port
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
