package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/namelens/pitchscore/internal/errors"
	"github.com/namelens/pitchscore/internal/observability"
)

const (
	metricsScrapeTimeout = 5 * time.Second
	defaultMetricsPort   = 9090
)

// Hop-by-hop headers are dropped when relaying the exporter response.
var hopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// metricsProxy serves /metrics on the API listener by relaying a scrape of
// the Prometheus exporter, which listens on its own loopback port.
type metricsProxy struct {
	client *http.Client
	// upstream reports the exporter scrape URL, or false when metrics are off.
	upstream func() (string, bool)
}

func newMetricsProxy() *metricsProxy {
	return &metricsProxy{
		client:   &http.Client{Timeout: metricsScrapeTimeout},
		upstream: exporterURL,
	}
}

func exporterURL() (string, bool) {
	if observability.PrometheusExporter == nil {
		return "", false
	}
	port := observability.GetMetricsPort()
	if port == 0 {
		port = defaultMetricsPort
	}
	return fmt.Sprintf("http://127.0.0.1:%d/metrics", port), true
}

func (p *metricsProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, ok := p.upstream()
	if !ok {
		HandleError(w, r, apperrors.NewServiceUnavailableError("Metrics are disabled for this server."))
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		HandleError(w, r, apperrors.WrapInternal(r.Context(), err, "Unable to build metrics scrape request."))
		return
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		HandleError(w, r, apperrors.WrapExternalService(r.Context(), err, "Prometheus exporter unavailable."))
		return
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Failed to close metrics scrape body", zap.Error(cerr))
		}
	}()

	for key, values := range resp.Header {
		if _, hop := hopHeaders[http.CanonicalHeaderKey(key)]; hop {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to relay metrics scrape", zap.Error(err))
	}
}
