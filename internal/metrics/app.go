package metrics

import (
	"time"

	"github.com/namelens/pitchscore/internal/observability"
)

// Application metric names following Prometheus conventions
const (
	RateLimitDecisionsTotal      = "ratelimit_decisions_total"
	RateLimitSweepEvictionsTotal = "ratelimit_sweep_evictions_total"
	RateLimitTrackedIdentities   = "ratelimit_tracked_identities"

	ScoringRequestsTotal = "scoring_requests_total"
	ScoringDuration      = "scoring_duration_ms"
	ProviderCallsTotal   = "ailink_provider_calls_total"

	HistoryOperationsTotal = "history_operations_total"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	ServerStartTime = "app_server_start_time_seconds"
)

// RecordRateLimitDecision counts one limiter decision on a route.
func RecordRateLimitDecision(route string, allowed bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	_ = observability.TelemetrySystem.Counter(
		RateLimitDecisionsTotal,
		1,
		map[string]string{
			"route":    route,
			"decision": decision,
		},
	)
}

// RecordSweep records the outcome of one limiter sweep.
func RecordSweep(evicted, remaining int) {
	if observability.TelemetrySystem == nil {
		return
	}
	if evicted > 0 {
		_ = observability.TelemetrySystem.Counter(RateLimitSweepEvictionsTotal, float64(evicted), nil)
	}
	SetTrackedIdentities(remaining)
}

// SetTrackedIdentities sets the number of identities held by the limiter.
func SetTrackedIdentities(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(RateLimitTrackedIdentities, float64(count), nil)
	}
}

// RecordScoring records a completed scoring run.
func RecordScoring(success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	labels := map[string]string{"status": statusLabel(success)}
	_ = observability.TelemetrySystem.Counter(ScoringRequestsTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(ScoringDuration, duration, labels)
}

// RecordProviderCall records one outbound AI provider call.
func RecordProviderCall(provider, prompt string, success bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		ProviderCallsTotal,
		1,
		map[string]string{
			"provider": provider,
			"prompt":   prompt,
			"status":   statusLabel(success),
		},
	)
}

// RecordHistoryOperation records a history journal read or write.
func RecordHistoryOperation(operation string, success bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		HistoryOperationsTotal,
		1,
		map[string]string{
			"operation": operation,
			"status":    statusLabel(success),
		},
	)
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	_ = observability.TelemetrySystem.Counter(
		HealthCheckTotal,
		1,
		map[string]string{
			"check":  checkName,
			"status": status,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		HealthCheckDuration,
		duration,
		map[string]string{"check": checkName},
	)
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
