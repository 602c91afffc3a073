package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/pitchscore/internal/appid"
	"github.com/namelens/pitchscore/internal/config"
	"github.com/namelens/pitchscore/internal/observability"
)

var (
	cfgFile string
	verbose bool

	appIdentity *appid.Identity

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}

	loaderMu     sync.Mutex
	configLoader *config.Loader
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity (only valid after initConfig)
func GetAppIdentity() *appid.Identity {
	return appIdentity
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	// NOTE: initConfig() overwrites these from app identity.
	Use:           filepath.Base(os.Args[0]),
	Short:         "Rate-limited AI scoring for project pitches",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	if identity, err := appid.Get(context.Background()); err == nil && identity != nil {
		appIdentity = identity
		applyIdentityToHelp(identity)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults to app identity config path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}

func applyIdentityToHelp(identity *appid.Identity) {
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
		rootCmd.Long = fmt.Sprintf("%s - %s\n\nUse the subcommands to perform specific operations.", identity.BinaryName, identity.Description)
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName)
	}
}

// initConfig prepares the CLI logger and the config loader. Commands load the
// configuration themselves so they can pass flag overrides.
func initConfig() {
	ctx := context.Background()
	identity, err := appid.Get(ctx)
	if err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to load app identity", err)
	}
	appIdentity = identity
	applyIdentityToHelp(identity)

	if err := observability.InitCLILogger(identity.BinaryName, verbose); err != nil {
		ExitWithCodeStderr(foundry.ExitFailure, "Failed to initialize logger", err)
	}

	loader, err := config.NewLoader(ctx, cfgFile)
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to prepare configuration", err)
	}

	loaderMu.Lock()
	configLoader = loader
	loaderMu.Unlock()
}

// loadConfig reads every configuration layer plus the given flag overrides.
func loadConfig(ctx context.Context, overrides map[string]any) (*config.Config, error) {
	loaderMu.Lock()
	loader := configLoader
	loaderMu.Unlock()

	if loader == nil {
		var err error
		loader, err = config.NewLoader(ctx, cfgFile)
		if err != nil {
			return nil, err
		}
	}

	var cfg *config.Config
	var err error
	if len(overrides) > 0 {
		cfg, err = loader.Load(overrides)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, err
	}

	if verbose && observability.CLILogger != nil {
		if used := loader.ConfigFileUsed(); used != "" {
			observability.CLILogger.Debug("Using config file", zap.String("path", used))
		} else {
			observability.CLILogger.Debug("No config file found, using defaults and environment variables")
		}
	}
	return cfg, nil
}

func currentLoader() *config.Loader {
	loaderMu.Lock()
	defer loaderMu.Unlock()
	return configLoader
}
