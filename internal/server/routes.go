package server

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/namelens/pitchscore/internal/appid"
	"github.com/namelens/pitchscore/internal/observability"
	"github.com/namelens/pitchscore/internal/server/handlers"
	servermw "github.com/namelens/pitchscore/internal/server/middleware"
)

// ScoreRoute is the rate-limited scoring endpoint.
const ScoreRoute = "/api/score"

// HistoryRoute lists the caller's recent analyses.
const HistoryRoute = "/api/history"

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	health := s.opts.Health
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/health/startup", health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)

	s.router.Method(http.MethodGet, "/metrics", newMetricsProxy())

	s.registerAPIRoutes()

	s.registerAdminEndpoint()
}

func (s *Server) registerAPIRoutes() {
	score := &handlers.ScoreHandler{
		Scorer:       s.opts.Scorer,
		MaxBodyBytes: s.opts.Config.MaxBodyBytes,
	}
	history := &handlers.HistoryHandler{Limit: s.opts.HistoryLimit}
	if s.opts.History != nil {
		score.History = s.opts.History
		history.Store = s.opts.History
	}

	var scoreHandler http.Handler = servermw.IdentityOnly(score)
	if s.opts.Limiter != nil {
		rl := s.opts.RateLimit
		if rl.Route == "" {
			rl.Route = ScoreRoute
		}
		scoreHandler = servermw.RateLimit(s.opts.Limiter, rl)(score)
	}

	s.router.Method(http.MethodPost, ScoreRoute, scoreHandler)
	s.router.Method(http.MethodGet, HistoryRoute, servermw.IdentityOnly(history))
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger

	if s.opts.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + appid.EnvName("ADMIN_TOKEN") + " set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: 10, // per minute
		RateBurst: 5,
		Manager:   nil,
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
