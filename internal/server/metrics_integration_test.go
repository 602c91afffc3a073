package server

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/pitchscore/internal/config"
	"github.com/namelens/pitchscore/internal/observability"
	"github.com/namelens/pitchscore/internal/ratelimit"
)

// isPermissionError normalizes OS-specific permission errors so tests can
// skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func initMetricsOrSkip(t *testing.T) {
	t.Helper()
	if err := observability.InitMetrics("test", 0, "test"); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

func startLoopback(t *testing.T, h http.Handler) (*httptest.Server, *http.Client) {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping server setup: %v", err)
		}
		require.NoError(t, err)
	}
	ts := &httptest.Server{Listener: listener, Config: &http.Server{Handler: h}}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, ts.Client()
}

func TestScoreTrafficIsExported(t *testing.T) {
	require.NoError(t, observability.InitServerLogger("test", observability.ServerLogOptions{Level: "error"}))
	initMetricsOrSkip(t)

	limiter := ratelimit.NewFixedWindow(ratelimit.Config{Limit: 5, Window: time.Minute})
	srv := New(Options{
		Config:  config.ServerConfig{Host: "127.0.0.1"},
		Limiter: limiter,
		Scorer:  &stubScorer{},
	})
	ts, client := startLoopback(t, srv.Handler())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodPost, ts.URL+ScoreRoute, strings.NewReader(pitchBody))
			if err != nil {
				return
			}
			req.Header.Set("X-Forwarded-For", "7.7.7.7")
			resp, err := client.Do(req)
			if err != nil {
				return
			}
			_ = resp.Body.Close()
			mu.Lock()
			statuses[resp.StatusCode]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, statuses[http.StatusOK])
	assert.Equal(t, 15, statuses[http.StatusTooManyRequests])

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	content := string(body)
	assert.Contains(t, content, "test_http_requests_total")
	assert.Contains(t, content, "test_ratelimit_decisions_total")
}

func TestMetricsEndpointWithTelemetryDisabled(t *testing.T) {
	originalExporter := observability.PrometheusExporter
	originalTelemetry := observability.TelemetrySystem
	observability.PrometheusExporter = nil
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.PrometheusExporter = originalExporter
		observability.TelemetrySystem = originalTelemetry
	})

	ts, client := startLoopback(t, New(Options{}).Handler())

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
