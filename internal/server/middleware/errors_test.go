package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryAPIRouteFlatBody(t *testing.T) {
	collector := setupTelemetry(t)
	h := RequestID(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/score", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, panicMessage, body["error"])
	assert.NotContains(t, rec.Body.String(), "boom")
	assert.EqualValues(t, 1, collector.CountMetricsByName("panics_total"))
}

func TestRecoveryEnvelopeBody(t *testing.T) {
	setupTelemetry(t)
	h := RequestID(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, "req-123", body.Error.RequestID)
}

func TestRequestIDRejectsOversizedHeader(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	long := make([]byte, maxRequestIDLength+1)
	for i := range long {
		long[i] = 'a'
	}
	req.Header.Set(RequestIDHeader, string(long))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.NotEmpty(t, got)
	assert.NotEqual(t, string(long), got)
}
