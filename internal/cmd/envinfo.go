package cmd

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/pitchscore/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display version, runtime and effective configuration, plus which environment overrides are set.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		version := crucible.GetVersion()
		identity := GetAppIdentity()

		logger.Info("=== " + identity.BinaryName + " Environment Information ===")
		logger.Info("")
		logger.Info("Application:")
		logger.Info("  Name:       " + identity.BinaryName)
		logger.Info("  Version:    " + versionInfo.Version)
		logger.Info("  Commit:     " + versionInfo.Commit)
		logger.Info("  Built:      " + versionInfo.BuildDate)
		logger.Info("")

		logger.Info("SSOT:")
		logger.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		logger.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		logger.Info("")

		logger.Info("Runtime:")
		logger.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		logger.Info("  Platform:   " + runtime.GOOS + "/" + runtime.GOARCH)
		logger.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		logger.Info("")

		cfg, err := loadConfig(cmd.Context(), nil)
		if err != nil {
			logger.Warn("Config load failed", zap.Error(err))
			return
		}

		logger.Info("Configuration:")
		if loader := currentLoader(); loader != nil && loader.ConfigFileUsed() != "" {
			logger.Info("  Config File:    " + loader.ConfigFileUsed())
		}
		logger.Info(fmt.Sprintf("  Server:         %s:%d", cfg.Server.Host, cfg.Server.Port))
		logger.Info(fmt.Sprintf("  Rate Limit:     %d per %s (enabled=%t)", cfg.RateLimit.Limit, cfg.RateLimit.Window, cfg.RateLimit.Enabled))
		logger.Info(fmt.Sprintf("  Limit Stats:    enabled=%t redis=%s", cfg.RateLimit.Stats.Enabled, cfg.RateLimit.Stats.RedisAddr))
		logger.Info(fmt.Sprintf("  History:        enabled=%t keep=%d", cfg.Scoring.History.Enabled, cfg.Scoring.History.Keep))
		logger.Info("  Store:          " + cfg.Store.Driver + " " + storeLocation(cfg))
		logger.Info("  Log Level:      " + cfg.Logging.Level)
		logger.Info(fmt.Sprintf("  AI Configured:  %t", cfg.AILink.Configured()))
		logger.Info("")

		if loader := currentLoader(); loader != nil {
			var set []string
			for _, spec := range loader.EnvSpecs() {
				if _, ok := os.LookupEnv(spec.Name); ok {
					set = append(set, spec.Name)
				}
			}
			if len(set) == 0 {
				logger.Info("Environment overrides: none")
			} else {
				logger.Info("Environment overrides: " + strings.Join(set, ", "))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
