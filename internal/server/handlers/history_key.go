package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// HistoryKeyHeader carries the caller's history key in both directions.
	HistoryKeyHeader = "X-History-Key"
	// HistoryKeyCookie is the cookie mirror of HistoryKeyHeader for browsers.
	HistoryKeyCookie = "pitchscore_history"

	historyKeyMaxAge = 365 * 24 * time.Hour
)

// HistoryKeyFrom returns the history key presented by the caller, from the
// header first and then the cookie. Only well-formed UUIDs are accepted, so
// keys are never derived from client addresses.
func HistoryKeyFrom(r *http.Request) (string, bool) {
	if key, ok := parseHistoryKey(r.Header.Get(HistoryKeyHeader)); ok {
		return key, true
	}
	if c, err := r.Cookie(HistoryKeyCookie); err == nil {
		return parseHistoryKey(c.Value)
	}
	return "", false
}

func parseHistoryKey(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return "", false
	}
	return id.String(), true
}

// ensureHistoryKey returns the caller's key, issuing a new random one when
// none was presented, and echoes it on the response.
func ensureHistoryKey(w http.ResponseWriter, r *http.Request) string {
	key, ok := HistoryKeyFrom(r)
	if !ok {
		key = uuid.NewString()
	}
	w.Header().Set(HistoryKeyHeader, key)
	http.SetCookie(w, &http.Cookie{
		Name:     HistoryKeyCookie,
		Value:    key,
		Path:     "/api",
		MaxAge:   int(historyKeyMaxAge / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}
