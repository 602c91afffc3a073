package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/pitchscore/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })

	return collector
}

func TestRateLimitMetrics(t *testing.T) {
	collector := setupTelemetry(t)

	RecordRateLimitDecision("/api/score", true)
	RecordRateLimitDecision("/api/score", false)
	RecordSweep(3, 7)
	RecordSweep(0, 7)

	assert.EqualValues(t, 2, collector.CountMetricsByName(RateLimitDecisionsTotal))
	assert.EqualValues(t, 1, collector.CountMetricsByName(RateLimitSweepEvictionsTotal))
	assert.EqualValues(t, 2, collector.CountMetricsByName(RateLimitTrackedIdentities))
}

func TestScoringMetrics(t *testing.T) {
	collector := setupTelemetry(t)

	RecordScoring(true, 120*time.Millisecond)
	RecordScoring(false, 3*time.Second)
	RecordProviderCall("gemini", "project-score", true)

	assert.EqualValues(t, 2, collector.CountMetricsByName(ScoringRequestsTotal))
	assert.EqualValues(t, 2, collector.CountMetricsByName(ScoringDuration))
	assert.EqualValues(t, 1, collector.CountMetricsByName(ProviderCallsTotal))
}

func TestErrorMetrics(t *testing.T) {
	collector := setupTelemetry(t)

	RecordError("RATE_LIMITED", 429)
	RecordErrorByEndpoint("/api/score", "RATE_LIMITED")
	RecordPanic()

	assert.EqualValues(t, 1, collector.CountMetricsByName(ErrorsTotalName))
	assert.EqualValues(t, 1, collector.CountMetricsByName(ErrorsByEndpointName))
	assert.EqualValues(t, 1, collector.CountMetricsByName(PanicsTotalName))
}

func TestMetricsWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	defer func() { observability.TelemetrySystem = original }()

	assert.NotPanics(t, func() {
		RecordRateLimitDecision("/api/score", true)
		RecordSweep(1, 0)
		RecordScoring(true, time.Millisecond)
		RecordHistoryOperation("save", true)
		RecordHealthCheck("limiter", true, time.Millisecond)
		SetServerStartTime(time.Now().Unix())
		RecordError("INTERNAL_ERROR", 500)
		RecordPanic()
	})
}
