package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/namelens/pitchscore/internal/errors"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckHealth(context.Context) error {
	return s.err
}

type stubRunner bool

func (s stubRunner) Running() bool { return bool(s) }

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthHandlerReturnsHealthyStatus(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("ok", stubChecker{})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, StatusHealthy, resp.Checks["ok"])
}

func TestHealthHandlerReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("store", stubChecker{err: errors.New("down")})
	manager.RegisterChecker("limiter", stubChecker{})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
	assert.Equal(t, StatusUnhealthy, resp.Error.Details["status"])

	checks, ok := resp.Error.Details["checks"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, StatusUnhealthy, checks["store"])
	assert.Equal(t, StatusHealthy, checks["limiter"])
}

func TestHealthHandlerDegradedStaysAvailable(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("ailink", stubChecker{err: fmt.Errorf("no keys: %w", ErrDegraded)})
	manager.RegisterChecker("store", stubChecker{})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, StatusDegraded, resp.Checks["ailink"])
}

func TestLivenessIgnoresCheckers(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("store", stubChecker{err: errors.New("down")})

	rec := httptest.NewRecorder()
	manager.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CheckResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
}

func TestReadinessAndStartupProbes(t *testing.T) {
	tests := []struct {
		name    string
		checker HealthChecker
		status  int
	}{
		{name: "healthy", checker: stubChecker{}, status: http.StatusOK},
		{name: "degraded", checker: stubChecker{err: ErrDegraded}, status: http.StatusOK},
		{name: "unhealthy", checker: stubChecker{err: errors.New("down")}, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewHealthManager("test")
			manager.RegisterChecker("dep", tt.checker)

			rec := httptest.NewRecorder()
			manager.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tt.status, rec.Code)

			rec = httptest.NewRecorder()
			manager.StartupHandler(rec, httptest.NewRequest(http.MethodGet, "/health/startup", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHealthHandlerCancelledContextTimesOut(t *testing.T) {
	manager := NewHealthManager("test")
	manager.RegisterChecker("slow", stubChecker{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(ctx)

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, StatusTimeout, resp.Checks["slow"])
}

func TestComponentCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, LimiterChecker(stubRunner(true)).CheckHealth(ctx))
	assert.Error(t, LimiterChecker(stubRunner(false)).CheckHealth(ctx))
	assert.Error(t, LimiterChecker(nil).CheckHealth(ctx))

	assert.NoError(t, StoreChecker(stubPinger{}).CheckHealth(ctx))
	assert.Error(t, StoreChecker(stubPinger{err: errors.New("closed")}).CheckHealth(ctx))
	assert.Error(t, StoreChecker(nil).CheckHealth(ctx))

	assert.NoError(t, AILinkChecker(func() bool { return true }).CheckHealth(ctx))
	assert.ErrorIs(t, AILinkChecker(func() bool { return false }).CheckHealth(ctx), ErrDegraded)
	assert.ErrorIs(t, AILinkChecker(nil).CheckHealth(ctx), ErrDegraded)
}
