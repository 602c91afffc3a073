package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.True(t, cfg.RateLimit.Enabled)
		assert.Equal(t, 10, cfg.RateLimit.Limit)
		assert.Equal(t, time.Second, cfg.RateLimit.Window)
		assert.Equal(t, time.Minute, cfg.RateLimit.SweepInterval)
		assert.False(t, cfg.RateLimit.Stats.Enabled)
		assert.Equal(t, 24*time.Hour, cfg.RateLimit.Stats.TTL)

		assert.Equal(t, "project-score", cfg.Scoring.ScorePrompt)
		assert.Equal(t, "project-feedback", cfg.Scoring.FeedbackPrompt)
		assert.True(t, cfg.Scoring.History.Enabled)
		assert.Equal(t, 10, cfg.Scoring.History.Keep)

		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("pitchscore"), "pitchscore.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.True(t, cfg.Health.Enabled)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolate(t)
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("PITCHSCORE_PORT", "3000")
		t.Setenv("PITCHSCORE_LOG_LEVEL", "warn")
		t.Setenv("PITCHSCORE_METRICS_ENABLED", "false")
		t.Setenv("PITCHSCORE_RATE_LIMIT", "25")
		t.Setenv("PITCHSCORE_RATE_LIMIT_WINDOW", "2s")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, 25, cfg.RateLimit.Limit)
		assert.Equal(t, 2*time.Second, cfg.RateLimit.Window)
	})

	t.Run("RateLimitEnvKeepsSiblingDefaults", func(t *testing.T) {
		isolate(t)
		t.Setenv("PITCHSCORE_RATE_LIMIT", "25")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 25, cfg.RateLimit.Limit)
		assert.Equal(t, time.Second, cfg.RateLimit.Window)
		assert.Equal(t, time.Minute, cfg.RateLimit.SweepInterval)
		assert.True(t, cfg.RateLimit.Enabled)
	})

	t.Run("UndeclaredEnvIgnored", func(t *testing.T) {
		isolate(t)
		t.Setenv("PITCHSCORE_SCORING", "oops")
		t.Setenv("PITCHSCORE_SERVER", "oops")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "project-score", cfg.Scoring.ScorePrompt)
	})

	t.Run("HistoryEnvOverride", func(t *testing.T) {
		isolate(t)
		t.Setenv("PITCHSCORE_HISTORY_ENABLED", "true")
		t.Setenv("PITCHSCORE_RATE_LIMIT_SWEEP_INTERVAL", "5s")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.True(t, cfg.Scoring.History.Enabled)
		assert.Equal(t, 5*time.Second, cfg.RateLimit.SweepInterval)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolate(t)
		path := writeConfig(t, "server:\n  port: 7000\n  host: filehost\n")
		t.Setenv("PITCHSCORE_PORT", "4000")

		loader, err := NewLoader(ctx, path)
		require.NoError(t, err)

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Server.Port, "env beats file")
		assert.Equal(t, "filehost", cfg.Server.Host)
		assert.Equal(t, path, loader.ConfigFileUsed())

		cfg, err = loader.Load(map[string]any{"server": map[string]any{"port": 5000}})
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port, "runtime beats env")
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		isolate(t)
		loader, err := NewLoader(ctx, filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		_, err = loader.Load()
		require.Error(t, err)
	})

	t.Run("InvalidValues", func(t *testing.T) {
		isolate(t)
		path := writeConfig(t, "rate_limit:\n  limit: 0\nstore:\n  driver: postgres\n")
		loader, err := NewLoader(ctx, path)
		require.NoError(t, err)

		_, err = loader.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate_limit.limit must be positive")
		assert.Contains(t, err.Error(), "store.driver")
	})
}

func TestAILinkEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PITCHSCORE_AILINK_PROVIDERS_MAIN_GEMINI_ENABLED", "true")
	t.Setenv("PITCHSCORE_AILINK_PROVIDERS_MAIN_GEMINI_AI_PROVIDER", "Gemini")
	t.Setenv("PITCHSCORE_AILINK_PROVIDERS_MAIN_GEMINI_MODELS_DEFAULT", "gemini-2.0-flash")
	t.Setenv("PITCHSCORE_AILINK_PROVIDERS_MAIN_GEMINI_CREDENTIALS_0_API_KEY", "secret")
	t.Setenv("PITCHSCORE_AILINK_PROVIDERS_MAIN_GEMINI_CREDENTIALS_0_PRIORITY", "3")
	t.Setenv("PITCHSCORE_AILINK_PROVIDERS_MAIN_GEMINI_PACING_RPS", "2.5")
	t.Setenv("PITCHSCORE_AILINK_PROVIDERS_MAIN_GEMINI_PACING_BURST", "4")
	t.Setenv("PITCHSCORE_AILINK_ROUTING_SCORING", "main-gemini")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	provider, ok := cfg.AILink.Providers["main-gemini"]
	require.True(t, ok)
	assert.True(t, provider.Enabled)
	assert.Equal(t, "gemini", provider.AIProvider)
	assert.Equal(t, "gemini-2.0-flash", provider.Models["default"])
	require.Len(t, provider.Credentials, 1)
	assert.Equal(t, "secret", provider.Credentials[0].APIKey)
	assert.Equal(t, 3, provider.Credentials[0].Priority)
	assert.Equal(t, 2.5, provider.Pacing.RequestsPerSecond)
	assert.Equal(t, 4, provider.Pacing.Burst)
	assert.Equal(t, "main-gemini", cfg.AILink.Routing["scoring"])
	assert.True(t, cfg.AILink.Configured())
}

func TestGetConfig(t *testing.T) {
	isolate(t)
	cfg, err := Load(context.Background(), map[string]any{"server": map[string]any{"port": 8181}})
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
}

func TestEnvSpecs(t *testing.T) {
	loader, err := NewLoader(context.Background(), "")
	require.NoError(t, err)

	envVarNames := make(map[string]bool)
	for _, spec := range getEnvSpecs(loader.identity) {
		envVarNames[spec.Name] = true
	}

	assert.True(t, envVarNames["PITCHSCORE_LOG_LEVEL"])
	assert.True(t, envVarNames["PITCHSCORE_PORT"])
	assert.True(t, envVarNames["PITCHSCORE_HOST"])
	assert.True(t, envVarNames["PITCHSCORE_METRICS_PORT"])
	assert.True(t, envVarNames["PITCHSCORE_DB_PATH"])
	assert.True(t, envVarNames["PITCHSCORE_REDIS_ADDR"])
	assert.Empty(t, getEnvSpecs(nil))
}

func TestWatchReloadsOnFileChange(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "rate_limit:\n  limit: 10\n")

	loader, err := NewLoader(context.Background(), path)
	require.NoError(t, err)
	_, err = loader.Load()
	require.NoError(t, err)

	changes := make(chan *Config, 4)
	require.True(t, loader.Watch(func(cfg *Config, err error) {
		if err == nil {
			select {
			case changes <- cfg:
			default:
			}
		}
	}))

	require.NoError(t, os.WriteFile(path, []byte("rate_limit:\n  limit: 42\n"), 0o600))

	select {
	case cfg := <-changes:
		assert.Equal(t, 42, cfg.RateLimit.Limit)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}

func TestWatchWithoutFile(t *testing.T) {
	isolate(t)
	loader, err := NewLoader(context.Background(), "")
	require.NoError(t, err)
	_, err = loader.Load()
	require.NoError(t, err)
	assert.False(t, loader.Watch(nil))
}
