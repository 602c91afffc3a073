package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/pitchscore/internal/appid"
	"github.com/namelens/pitchscore/internal/config"
	errwrap "github.com/namelens/pitchscore/internal/errors"
	"github.com/namelens/pitchscore/internal/metrics"
	"github.com/namelens/pitchscore/internal/observability"
	"github.com/namelens/pitchscore/internal/ratelimit"
	"github.com/namelens/pitchscore/internal/server"
	"github.com/namelens/pitchscore/internal/server/handlers"
	servermw "github.com/namelens/pitchscore/internal/server/middleware"
	"github.com/namelens/pitchscore/internal/store"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Routes:
  POST /api/score    score a pitch (rate limited per client identity)
  GET  /api/history  recent analyses for the calling identity

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP or config file change: reload rate limits`,
	RunE: runServe,
}

func serveOverrides(cmd *cobra.Command) map[string]any {
	overrides := map[string]any{}
	if cmd.Flags().Changed("host") {
		overrides["server.host"] = serverHost
	}
	if cmd.Flags().Changed("port") {
		overrides["server.port"] = serverPort
	}
	return overrides
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	identity := GetAppIdentity()

	cfg, err := loadConfig(ctx, serveOverrides(cmd))
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "configuration invalid")
	}

	if err := observability.InitServerLogger(identity.BinaryName, observability.ServerLogOptions{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Namespace: cfg.Metrics.Namespace,
	}); err != nil {
		return errwrap.WrapInternal(ctx, err, "logger initialization failed")
	}
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port, cfg.Metrics.Namespace); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
		metrics.SetServerStartTime(time.Now().Unix())
	}

	logger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Int("rate_limit_per_window", cfg.RateLimit.Limit),
		zap.Duration("rate_limit_window", cfg.RateLimit.Window),
		zap.Bool("history", cfg.Scoring.History.Enabled))

	hm := handlers.NewHealthManager(versionInfo.Version)
	opts := server.Options{
		Config:       cfg.Server,
		Health:       hm,
		HistoryLimit: cfg.Scoring.History.Keep,
		AdminToken:   strings.TrimSpace(os.Getenv(appid.EnvName("ADMIN_TOKEN"))),
	}

	var limiter *ratelimit.FixedWindow
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewFixedWindow(ratelimit.Config{
			Limit:         cfg.RateLimit.Limit,
			Window:        cfg.RateLimit.Window,
			SweepInterval: cfg.RateLimit.SweepInterval,
		}, ratelimit.WithSweepHook(metrics.RecordSweep))
		limiter.Start(ctx)
		hm.RegisterChecker("rate_limiter", handlers.LimiterChecker(limiter))

		opts.Limiter = limiter
		opts.RateLimit = servermw.RateLimitOptions{
			Route:   server.ScoreRoute,
			Message: cfg.RateLimit.Message,
		}
	}

	var redisClient *redis.Client
	if cfg.RateLimit.Enabled && cfg.RateLimit.Stats.Enabled {
		redisClient = newRedisClient(cfg.RateLimit.Stats)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Rate limit stats backend unreachable; decisions will still be enforced",
				zap.String("addr", cfg.RateLimit.Stats.RedisAddr),
				zap.Error(err))
		}
		cancel()
		opts.RateLimit.Stats = newRedisStats(redisClient, cfg.RateLimit.Stats)
		hm.RegisterChecker("rate_limit_stats", handlers.CheckerFunc(func(ctx context.Context) error {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return errwrap.WrapExternalService(ctx, err, "rate limit stats backend unreachable")
			}
			return nil
		}))
	}

	var db *store.Store
	if cfg.Scoring.History.Enabled {
		db, err = openStore(ctx, cfg, logger)
		if err != nil {
			logger.Warn("History store unavailable; analyses will not be recorded",
				zap.String("store", storeLocation(cfg)),
				zap.Error(err))
			db = nil
		} else {
			opts.History = db
			hm.RegisterChecker("store", handlers.StoreChecker(db))
		}
	}

	scorer, svc, err := buildScorer(cfg, logger)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "scoring initialization failed")
	}
	opts.Scorer = scorer
	hm.RegisterChecker("ailink", handlers.AILinkChecker(cfg.AILink.Configured))
	if !cfg.AILink.Configured() {
		logger.Warn("No AI provider configured; /api/score will fail until credentials are set")
	}
	logger.Debug("Prompts loaded", zap.Int("count", len(svc.Registry.List())))

	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}

	handlers.SetAppIdentity(identity)
	srv := server.New(opts)

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Shutdown handlers run LIFO: last registered, first executed.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		if limiter != nil {
			limiter.Stop()
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("Failed to close redis client", zap.Error(err))
			}
		}
		if db != nil {
			if err := db.Close(); err != nil {
				logger.Warn("Failed to close history store", zap.Error(err))
			}
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}

		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	applyReload := func(next *config.Config, err error) {
		if err != nil {
			logger.Error("Configuration reload rejected", zap.Error(err))
			return
		}
		if limiter != nil {
			limiter.Reconfigure(next.RateLimit.Limit, next.RateLimit.Window)
			logger.Info("Rate limit reconfigured",
				zap.Int("limit", limiter.Limit()),
				zap.Duration("window", limiter.Window()))
		}
	}

	loader := currentLoader()
	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: reloading configuration")
		if loader == nil {
			return nil
		}
		next, err := loader.Load(serveOverrides(cmd))
		applyReload(next, err)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}
		return nil
	})

	if loader != nil && loader.Watch(applyReload) {
		logger.Info("Watching configuration file", zap.String("file", loader.ConfigFileUsed()))
	}

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 2)
	go func() {
		errChan <- srv.Start()
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")
}
