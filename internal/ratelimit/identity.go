package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownIdentity is returned when no client identity header is present.
const UnknownIdentity = "unknown"

// Identity headers in priority order.
const (
	HeaderCFConnectingIP = "CF-Connecting-IP"
	HeaderForwardedFor   = "X-Forwarded-For"
	HeaderRealIP         = "X-Real-IP"
	HeaderClientIP       = "X-Client-IP"
)

// ResolveIdentity derives the rate limit key for a request from its headers.
//
// The first present, non-empty header wins: CF-Connecting-IP, the first entry
// of X-Forwarded-For, X-Real-IP, then X-Client-IP. Headers are client
// controlled, so the result is a best-effort key and not an authenticated one.
func ResolveIdentity(h http.Header) string {
	if h == nil {
		return UnknownIdentity
	}

	if v := strings.TrimSpace(h.Get(HeaderCFConnectingIP)); v != "" {
		return v
	}

	if xff := h.Get(HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if v := strings.TrimSpace(first); v != "" {
			return v
		}
	}

	if v := strings.TrimSpace(h.Get(HeaderRealIP)); v != "" {
		return v
	}

	if v := strings.TrimSpace(h.Get(HeaderClientIP)); v != "" {
		return v
	}

	return UnknownIdentity
}
