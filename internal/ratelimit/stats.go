package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsEvent describes one limiter decision.
type StatsEvent struct {
	Identity string
	Allowed  bool
	Route    string
	At       time.Time
}

// StatsRecorder persists limiter decisions. Callers treat errors as
// best-effort and never fail a request because of them.
type StatsRecorder interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// Counters holds allowed/denied totals.
type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

func (c *Counters) add(allowed bool) {
	if allowed {
		c.Allowed++
		return
	}
	c.Denied++
}

// MemoryStats keeps counters in process. It never expires anything and is
// meant for development and tests.
type MemoryStats struct {
	mu         sync.Mutex
	total      Counters
	byRoute    map[string]Counters
	byIdentity map[string]Counters
}

// NewMemoryStats returns an empty in-memory recorder.
func NewMemoryStats() *MemoryStats {
	return &MemoryStats{
		byRoute:    make(map[string]Counters),
		byIdentity: make(map[string]Counters),
	}
}

// Record implements StatsRecorder.
func (s *MemoryStats) Record(_ context.Context, ev StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Allowed)

	route := s.byRoute[ev.Route]
	route.add(ev.Allowed)
	s.byRoute[ev.Route] = route

	ident := s.byIdentity[ev.Identity]
	ident.add(ev.Allowed)
	s.byIdentity[ev.Identity] = ident
	return nil
}

// Total returns the aggregate counters.
func (s *MemoryStats) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ByIdentity returns a copy of the per-identity counters.
func (s *MemoryStats) ByIdentity() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byIdentity))
	for k, v := range s.byIdentity {
		out[k] = v
	}
	return out
}

// ByRoute returns a copy of the per-route counters.
func (s *MemoryStats) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out
}

// RedisStats writes decision counters into Redis hashes:
//
//	<prefix>:total                 allowed|denied
//	<prefix>:minute:<yyyymmddhhmm> allowed|denied (expires after TTL)
//	<prefix>:route                 "<route>:allowed"|"<route>:denied"
//	<prefix>:identity:<identity>   allowed|denied (only when TrackIdentities)
type RedisStats struct {
	client          redis.Cmdable
	prefix          string
	ttl             time.Duration
	trackIdentities bool
}

// RedisStatsOption customizes RedisStats.
type RedisStatsOption func(*RedisStats)

// WithStatsPrefix sets the key prefix.
func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStats) {
		if p := strings.Trim(strings.TrimSpace(prefix), ":"); p != "" {
			s.prefix = p
		}
	}
}

// WithStatsTTL sets the expiry of per-minute and per-identity keys.
func WithStatsTTL(ttl time.Duration) RedisStatsOption {
	return func(s *RedisStats) { s.ttl = ttl }
}

// WithTrackIdentities enables per-identity hashes. Identity cardinality is
// unbounded, so keep a TTL when enabling this.
func WithTrackIdentities(track bool) RedisStatsOption {
	return func(s *RedisStats) { s.trackIdentities = track }
}

// NewRedisStats returns a Redis-backed recorder.
func NewRedisStats(client redis.Cmdable, opts ...RedisStatsOption) *RedisStats {
	s := &RedisStats{
		client: client,
		prefix: "pitchscore:ratelimit",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prefix returns the configured key prefix.
func (s *RedisStats) Prefix() string { return s.prefix }

// Record implements StatsRecorder.
func (s *RedisStats) Record(ctx context.Context, ev StatsEvent) error {
	if s == nil || s.client == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := fieldFor(ev.Allowed)

	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	if route := strings.TrimSpace(ev.Route); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	if s.trackIdentities {
		if ident := strings.TrimSpace(ev.Identity); ident != "" {
			identKey := s.prefix + ":identity:" + ident
			pipe.HIncrBy(ctx, identKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, identKey, s.ttl)
			}
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record rate limit stats: %w", err)
	}
	return nil
}

func fieldFor(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}

// StatsSnapshot is the aggregate view read back from Redis.
type StatsSnapshot struct {
	Prefix  string              `json:"prefix"`
	Total   Counters            `json:"total"`
	ByRoute map[string]Counters `json:"by_route"`
}

// Routes returns the snapshot's route names in sorted order.
func (s *StatsSnapshot) Routes() []string {
	routes := make([]string, 0, len(s.ByRoute))
	for route := range s.ByRoute {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes
}

// Snapshot reads the total and per-route counters.
func (s *RedisStats) Snapshot(ctx context.Context) (*StatsSnapshot, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("redis stats not configured")
	}

	total, err := s.client.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return nil, fmt.Errorf("read rate limit totals: %w", err)
	}
	routes, err := s.client.HGetAll(ctx, s.prefix+":route").Result()
	if err != nil {
		return nil, fmt.Errorf("read rate limit routes: %w", err)
	}

	snap := &StatsSnapshot{Prefix: s.prefix, ByRoute: make(map[string]Counters)}
	snap.Total.Allowed = parseCount(total["allowed"])
	snap.Total.Denied = parseCount(total["denied"])

	for field, raw := range routes {
		idx := strings.LastIndex(field, ":")
		if idx <= 0 {
			continue
		}
		route, kind := field[:idx], field[idx+1:]
		c := snap.ByRoute[route]
		switch kind {
		case "allowed":
			c.Allowed = parseCount(raw)
		case "denied":
			c.Denied = parseCount(raw)
		default:
			continue
		}
		snap.ByRoute[route] = c
	}
	return snap, nil
}

// Reset deletes every key under the prefix and returns how many were removed.
// With dryRun it only counts them.
func (s *RedisStats) Reset(ctx context.Context, dryRun bool) (int64, error) {
	if s == nil || s.client == nil {
		return 0, fmt.Errorf("redis stats not configured")
	}

	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, s.prefix+":*", 200).Result()
		if err != nil {
			return 0, fmt.Errorf("scan rate limit keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if dryRun || len(keys) == 0 {
		return int64(len(keys)), nil
	}
	deleted, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("delete rate limit keys: %w", err)
	}
	return deleted, nil
}

func parseCount(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
