package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/namelens/pitchscore/internal/config"
	apperrors "github.com/namelens/pitchscore/internal/errors"
	"github.com/namelens/pitchscore/internal/observability"
	"github.com/namelens/pitchscore/internal/server/handlers"
	servermw "github.com/namelens/pitchscore/internal/server/middleware"
)

// HistoryStore is the journal used by the /api routes.
type HistoryStore interface {
	handlers.HistorySaver
	handlers.HistoryLister
}

// Options wires the server's dependencies.
type Options struct {
	Config config.ServerConfig

	// Limiter guards POST /api/score. Nil disables rate limiting.
	Limiter   servermw.Limiter
	RateLimit servermw.RateLimitOptions

	Scorer handlers.Scorer
	// History is optional; GET /api/history answers 404 without it.
	History      HistoryStore
	HistoryLimit int

	Health *handlers.HealthManager

	// AdminToken enables POST /admin/signal when set.
	AdminToken string
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
		opts.Health = handlers.NewHealthManager(handlers.AppVersion)
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// RequestID → Metrics → Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		opts:   opts,
	}

	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.opts.Config.Host, s.opts.Config.Port)
}

// Start starts the HTTP server. It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	cfg := s.opts.Config
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadTimeout:       durationOr(cfg.ReadTimeout, 30*time.Second),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      durationOr(cfg.WriteTimeout, 120*time.Second),
		IdleTimeout:       durationOr(cfg.IdleTimeout, 120*time.Second),
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("addr", s.server.Addr))
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
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

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.opts.Config.Port
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
