package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/namelens/pitchscore/internal/errors"
	"github.com/namelens/pitchscore/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify the configuration loads, the history store opens and an AI provider is configured.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		logger.Info("✅ Version information available")

		cfg, err := loadConfig(cmd.Context(), nil)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid"))
			return
		}
		logger.Info("✅ Configuration valid",
			zap.Int("rate_limit", cfg.RateLimit.Limit),
			zap.Duration("rate_window", cfg.RateLimit.Window))

		if cfg.Scoring.History.Enabled {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			db, err := openStore(ctx, cfg, logger)
			if err == nil {
				err = db.Ping(ctx)
				_ = db.Close()
			}
			cancel()
			if err != nil {
				ExitWithCode(logger, foundry.ExitFailure, "History store unavailable", errwrap.WrapDatabaseError(cmd.Context(), err, "history store unavailable"))
				return
			}
			logger.Info("✅ History store reachable", zap.String("store", storeLocation(cfg)))
		}

		if cfg.AILink.Configured() {
			logger.Info("✅ AI provider configured")
		} else {
			logger.Warn("⚠️  No AI provider configured; scoring will fail")
		}

		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
