package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/namelens/pitchscore/internal/metrics"
	"github.com/namelens/pitchscore/internal/observability"
	"github.com/namelens/pitchscore/internal/ratelimit"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// DefaultRateLimitMessage is the 429 error text.
const DefaultRateLimitMessage = "Too many requests. Please wait a moment before trying again."

// statsTimeout bounds a single stats write so a slow sink cannot stall requests.
const statsTimeout = 250 * time.Millisecond

// Limiter is the subset of ratelimit.FixedWindow the middleware needs.
type Limiter interface {
	Check(identity string) ratelimit.Decision
	Now() time.Time
}

// RateLimitOptions configures RateLimit.
type RateLimitOptions struct {
	// Route labels metrics and stats; defaults to the request path.
	Route string
	// Message overrides DefaultRateLimitMessage.
	Message string
	// Stats optionally receives every decision.
	Stats ratelimit.StatsRecorder
}

type identityContextKey struct{}

// WithIdentity stores the resolved client identity on ctx.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// GetIdentity returns the identity stored by RateLimit or IdentityOnly,
// resolving it from headers when absent.
func GetIdentity(r *http.Request) string {
	if identity, ok := r.Context().Value(identityContextKey{}).(string); ok {
		return identity
	}
	return ratelimit.ResolveIdentity(r.Header)
}

// IdentityOnly resolves the client identity without consuming quota.
func IdentityOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := ratelimit.ResolveIdentity(r.Header)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RateLimit consults limiter once per request before the wrapped handler
// runs. Every response carries the X-RateLimit-* headers; denied requests
// get 429 with {"error", "retryAfter"} and never reach next.
func RateLimit(limiter Limiter, opts RateLimitOptions) func(http.Handler) http.Handler {
	message := opts.Message
	if message == "" {
		message = DefaultRateLimitMessage
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := ratelimit.ResolveIdentity(r.Header)
			decision := limiter.Check(identity)

			route := opts.Route
			if route == "" {
				route = r.URL.Path
			}

			metrics.RecordRateLimitDecision(route, decision.Allowed)
			recordStats(r.Context(), opts.Stats, ratelimit.StatsEvent{
				Identity: identity,
				Allowed:  decision.Allowed,
				Route:    route,
				At:       limiter.Now(),
			})

			h := w.Header()
			h.Set(HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
			h.Set(HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
			h.Set(HeaderRateLimitReset, strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				retryAfter := decision.RetryAfter(limiter.Now())
				h.Set(HeaderRetryAfter, strconv.Itoa(retryAfter))

				if observability.ServerLogger != nil {
					observability.ServerLogger.Warn("Rate limit exceeded",
						zap.String("identity", identity),
						zap.String("route", route),
						zap.Int("limit", decision.Limit),
						zap.Int("retry_after", retryAfter),
						zap.String("request_id", GetRequestID(r.Context())),
					)
				}
				metrics.RecordError("RATE_LIMITED", http.StatusTooManyRequests)

				writeJSON(w, http.StatusTooManyRequests, RateLimitedResponse{
					Error:      message,
					RetryAfter: retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RateLimitedResponse is the 429 body.
type RateLimitedResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

func recordStats(ctx context.Context, stats ratelimit.StatsRecorder, ev ratelimit.StatsEvent) {
	if stats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsTimeout)
	defer cancel()
	if err := stats.Record(ctx, ev); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to record rate limit stats",
			zap.String("route", ev.Route),
			zap.Error(err))
	}
}
