package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/namelens/pitchscore/internal/observability"
	"go.uber.org/zap"
)

// responseWriter wraps http.ResponseWriter to capture status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// getEndpointPattern extracts chi route pattern to avoid high-cardinality paths
func getEndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if routePattern := rctx.RoutePattern(); routePattern != "" {
			return routePattern
		}
	}

	// Fallback to path-based categorization for non-chi routes
	path := r.URL.Path
	switch path {
	case "/health", "/health/live", "/health/ready", "/health/startup":
		return "/health/*"
	case "/version":
		return "/version"
	case "/metrics":
		return "/metrics"
	case "/api/score", "/api/history":
		return path
	case "/":
		return "/"
	default:
		// For unknown paths, use a generic pattern to avoid cardinality issues
		return "/unknown"
	}
}

// RequestMetrics emits per-request telemetry and logs every request once.
// Logging happens even when telemetry is disabled.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		requestSize := int64(0)
		if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
			if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
				requestSize = size
			}
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		endpoint := getEndpointPattern(r)

		if observability.TelemetrySystem != nil {
			emitRequestMetrics(r.Method, endpoint, wrapped, duration, requestSize)
		}

		logRequest(r, endpoint, wrapped, duration, requestSize)
	})
}

func emitRequestMetrics(method, endpoint string, rw *responseWriter, duration time.Duration, requestSize int64) {
	status := strconv.Itoa(rw.statusCode)
	commonLabels := map[string]string{
		"method":   method,
		"endpoint": endpoint,
		"status":   status,
	}
	sizeLabels := map[string]string{
		"method":   method,
		"endpoint": endpoint,
	}

	_ = observability.TelemetrySystem.Counter("http_requests_total", 1, commonLabels)
	_ = observability.TelemetrySystem.Histogram("http_request_duration_ms", duration, commonLabels)
	_ = observability.TelemetrySystem.Gauge("http_request_size_bytes", float64(requestSize), sizeLabels)
	_ = observability.TelemetrySystem.Gauge("http_response_size_bytes", float64(rw.bytesWritten), sizeLabels)

	if rw.statusCode >= 400 {
		errorType := "client_error"
		if rw.statusCode >= 500 {
			errorType = "server_error"
		}
		_ = observability.TelemetrySystem.Counter(
			"http_errors_total",
			1,
			map[string]string{
				"method":     method,
				"endpoint":   endpoint,
				"status":     status,
				"error_type": errorType,
			},
		)
	}
}

func logRequest(r *http.Request, endpoint string, rw *responseWriter, duration time.Duration, requestSize int64) {
	if observability.ServerLogger == nil {
		return
	}
	observability.ServerLogger.Info("HTTP request completed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("endpoint", endpoint),
		zap.Int("status", rw.statusCode),
		zap.Duration("duration", duration),
		zap.Int64("request_size", requestSize),
		zap.Int64("response_size", rw.bytesWritten),
		zap.String("request_id", GetRequestID(r.Context())),
	)
}
