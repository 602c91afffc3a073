package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/pitchscore/internal/ratelimit"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type failingStats struct{ calls int }

func (f *failingStats) Record(context.Context, ratelimit.StatsEvent) error {
	f.calls++
	return errors.New("redis down")
}

func newLimitedHandler(t *testing.T, limit int, stats ratelimit.StatsRecorder) (http.Handler, *testClock, *int) {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := ratelimit.NewFixedWindow(ratelimit.Config{Limit: limit, Window: time.Second}, ratelimit.WithClock(clock.Now))

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(GetIdentity(r)))
	})
	return RateLimit(limiter, RateLimitOptions{Route: "/api/score", Stats: stats})(next), clock, &calls
}

func doRequest(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/score", nil)
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitAllowsAndSetsHeaders(t *testing.T) {
	stats := ratelimit.NewMemoryStats()
	h, clock, calls := newLimitedHandler(t, 10, stats)
	reset := strconv.FormatInt(clock.Now().Add(time.Second).Unix(), 10)

	for i := 0; i < 10; i++ {
		rec := doRequest(h, "1.1.1.1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "10", rec.Header().Get(HeaderRateLimitLimit))
		assert.Equal(t, strconv.Itoa(9-i), rec.Header().Get(HeaderRateLimitRemaining))
		assert.Equal(t, reset, rec.Header().Get(HeaderRateLimitReset))
		assert.Empty(t, rec.Header().Get(HeaderRetryAfter))
		assert.Equal(t, "1.1.1.1", rec.Body.String())
	}
	assert.Equal(t, 10, *calls)
	assert.Equal(t, ratelimit.Counters{Allowed: 10}, stats.Total())
}

func TestRateLimitDeniesWith429(t *testing.T) {
	stats := ratelimit.NewMemoryStats()
	h, clock, calls := newLimitedHandler(t, 10, stats)

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, doRequest(h, "1.1.1.1").Code)
	}

	clock.Advance(500 * time.Millisecond)
	rec := doRequest(h, "1.1.1.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, "1", rec.Header().Get(HeaderRetryAfter))

	var body RateLimitedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, DefaultRateLimitMessage, body.Error)
	assert.Equal(t, 1, body.RetryAfter)
	assert.Equal(t, 10, *calls, "denied request must not reach the handler")
	assert.Equal(t, ratelimit.Counters{Allowed: 10, Denied: 1}, stats.Total())

	clock.Advance(600 * time.Millisecond)
	rec = doRequest(h, "1.1.1.1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "9", rec.Header().Get(HeaderRateLimitRemaining))
}

func TestRateLimitSeparateIdentities(t *testing.T) {
	h, _, _ := newLimitedHandler(t, 1, nil)

	require.Equal(t, http.StatusOK, doRequest(h, "1.1.1.1").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(h, "1.1.1.1").Code)
	require.Equal(t, http.StatusOK, doRequest(h, "2.2.2.2").Code)

	rec := doRequest(h, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ratelimit.UnknownIdentity, rec.Body.String())
	require.Equal(t, http.StatusTooManyRequests, doRequest(h, "").Code)
}

func TestRateLimitStatsFailureIsNotFatal(t *testing.T) {
	stats := &failingStats{}
	h, _, calls := newLimitedHandler(t, 5, stats)

	rec := doRequest(h, "1.1.1.1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, stats.calls)
	assert.Equal(t, 1, *calls)
}

func TestRateLimitEmitsDecisionMetrics(t *testing.T) {
	collector := setupTelemetry(t)
	h, _, _ := newLimitedHandler(t, 1, nil)

	doRequest(h, "1.1.1.1")
	doRequest(h, "1.1.1.1")

	assert.EqualValues(t, 2, collector.CountMetricsByName("ratelimit_decisions_total"))
	assert.Greater(t, collector.CountMetricsByName("errors_total"), 0)
}

func TestIdentityOnly(t *testing.T) {
	var got string
	h := IdentityOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetIdentity(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("CF-Connecting-IP", "9.9.9.9")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "9.9.9.9", got)
}

func TestGetIdentityFallsBackToHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "4.4.4.4")
	assert.Equal(t, "4.4.4.4", GetIdentity(req))
}
