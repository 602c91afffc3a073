package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/redis/go-redis/v9"

	"github.com/namelens/pitchscore/internal/ailink"
	"github.com/namelens/pitchscore/internal/ailink/prompt"
	"github.com/namelens/pitchscore/internal/config"
	"github.com/namelens/pitchscore/internal/ratelimit"
	"github.com/namelens/pitchscore/internal/scoring"
	"github.com/namelens/pitchscore/internal/store"
)

// cliIdentity keys history written by the score command.
const cliIdentity = "cli"

func buildScorer(cfg *config.Config, logger *logging.Logger) (*scoring.Orchestrator, *ailink.Service, error) {
	svc, err := ailink.NewService(cfg.AILink)
	if err != nil {
		return nil, nil, fmt.Errorf("load prompts: %w", err)
	}
	orch := scoring.NewOrchestrator(svc, scoring.Options{
		ScorePrompt:    cfg.Scoring.ScorePrompt,
		FeedbackPrompt: cfg.Scoring.FeedbackPrompt,
		ScoreRole:      cfg.Scoring.ScoreRole,
		FeedbackRole:   cfg.Scoring.FeedbackRole,
		Timeout:        cfg.Scoring.Timeout,
		Logger:         logger,
	})
	if err := prompt.Require(svc.Registry, orch.PromptSlugs()...); err != nil {
		return nil, nil, fmt.Errorf("scoring prompts: %w", err)
	}
	return orch, svc, nil
}

// openStore opens and migrates the history store.
func openStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store,
		store.WithLogger(logger),
		store.WithRetention(cfg.Scoring.History.Keep),
	)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newRedisClient(cfg config.StatsConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func newRedisStats(client redis.Cmdable, cfg config.StatsConfig) *ratelimit.RedisStats {
	return ratelimit.NewRedisStats(client,
		ratelimit.WithStatsPrefix(cfg.Prefix),
		ratelimit.WithStatsTTL(cfg.TTL),
		ratelimit.WithTrackIdentities(cfg.TrackIdentities),
	)
}

// storeLocation returns the resolved database location for display.
func storeLocation(cfg *config.Config) string {
	if cfg == nil {
		return config.DefaultStorePath()
	}
	if url := strings.TrimSpace(cfg.Store.URL); url != "" {
		return url
	}
	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = config.DefaultStorePath()
	}
	if absPath, err := filepath.Abs(dbPath); err == nil {
		return absPath
	}
	return dbPath
}
