package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/namelens/pitchscore/internal/observability"
)

func TestInitCLILogger(t *testing.T) {
	require.NoError(t, observability.InitCLILogger("pitchscore-test", false))
	require.NotNil(t, observability.CLILogger)
	observability.CLILogger.Info("cli logger ready", zap.String("test", "value"))

	require.NoError(t, observability.InitCLILogger("pitchscore-test", true))
	observability.CLILogger.Debug("verbose logging", zap.String("mode", "verbose"))
}

func TestInitServerLogger(t *testing.T) {
	tests := []struct {
		name string
		opts observability.ServerLogOptions
	}{
		{name: "defaults", opts: observability.ServerLogOptions{}},
		{name: "json with namespace", opts: observability.ServerLogOptions{Level: "debug", Format: "json", Namespace: "pitchscore"}},
		{name: "console", opts: observability.ServerLogOptions{Level: "warn", Format: "console", Environment: "test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, observability.InitServerLogger("pitchscore-test", tt.opts))
			require.NotNil(t, observability.ServerLogger)
			observability.ServerLogger.Info("server logger ready",
				zap.String("component", "test"),
				zap.Int("limit", 10))
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, "DEBUG", observability.ParseLogLevel("debug"))
	require.Equal(t, "WARN", observability.ParseLogLevel(" Warning "))
	require.Equal(t, "ERROR", observability.ParseLogLevel("error"))
	require.Equal(t, "INFO", observability.ParseLogLevel("nonsense"))
}

func TestEmbeddedCrucibleVersion(t *testing.T) {
	version := crucible.GetVersion()
	require.NotEmpty(t, version.Gofulmen)
	require.NotEmpty(t, version.Crucible)
	require.NotEmpty(t, crucible.GetVersionString())
}
