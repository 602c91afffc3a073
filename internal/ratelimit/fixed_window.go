// Package ratelimit guards the scoring endpoint with a per-identity
// fixed-window request counter.
//
// The counter resets at fixed boundaries, so a client may issue Limit requests
// at the tail of one window and Limit more at the head of the next.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Defaults applied by NewFixedWindow when a Config field is zero.
const (
	DefaultLimit         = 10
	DefaultWindow        = time.Second
	DefaultSweepInterval = time.Minute
)

// Config configures a FixedWindow limiter.
type Config struct {
	// Limit is the maximum number of accepted requests per window.
	Limit int
	// Window is the window length.
	Window time.Duration
	// SweepInterval controls how often expired entries are evicted.
	SweepInterval time.Duration
}

// Decision is the outcome of a single Check call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the whole seconds until ResetAt, rounded up and never
// below one.
func (d Decision) RetryAfter(now time.Time) int {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return 1
	}
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

type entry struct {
	count         int
	windowResetAt time.Time
}

// FixedWindow is an in-memory fixed-window counter keyed by client identity.
// It is safe for concurrent use.
type FixedWindow struct {
	limit         int
	window        time.Duration
	sweepInterval time.Duration
	clock         func() time.Time
	onSweep       func(evicted, remaining int)

	mu      sync.Mutex
	entries map[string]*entry

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option customizes a FixedWindow.
type Option func(*FixedWindow)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(l *FixedWindow) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithSweepHook registers a callback invoked after every sweep with the
// number of evicted entries and the number still tracked.
func WithSweepHook(hook func(evicted, remaining int)) Option {
	return func(l *FixedWindow) { l.onSweep = hook }
}

// NewFixedWindow builds a limiter. The sweep task is not started until Start.
func NewFixedWindow(cfg Config, opts ...Option) *FixedWindow {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	l := &FixedWindow{
		limit:         cfg.Limit,
		window:        cfg.Window,
		sweepInterval: cfg.SweepInterval,
		clock:         time.Now,
		entries:       make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured per-window request limit.
func (l *FixedWindow) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

// Window returns the configured window length.
func (l *FixedWindow) Window() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.window
}

// Reconfigure changes the limit and window length. Windows already open keep
// their reset time; the new length applies from the next window. Non-positive
// values leave the current setting unchanged.
func (l *FixedWindow) Reconfigure(limit int, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit > 0 {
		l.limit = limit
	}
	if window > 0 {
		l.window = window
	}
}

// Now returns the limiter's current time.
func (l *FixedWindow) Now() time.Time { return l.clock() }

// Check records a request for identity and reports whether it is allowed.
// Denied requests do not mutate state.
func (l *FixedWindow) Check(identity string) Decision {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identity]
	if !ok || now.After(e.windowResetAt) {
		e = &entry{count: 1, windowResetAt: now.Add(l.window)}
		l.entries[identity] = e
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - 1, ResetAt: e.windowResetAt}
	}

	if e.count >= l.limit {
		return Decision{Allowed: false, Limit: l.limit, Remaining: 0, ResetAt: e.windowResetAt}
	}

	e.count++
	return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - e.count, ResetAt: e.windowResetAt}
}

// Sweep evicts every entry whose window has elapsed and returns the number
// removed.
func (l *FixedWindow) Sweep() int {
	now := l.clock()

	l.mu.Lock()
	evicted := 0
	for identity, e := range l.entries {
		if now.After(e.windowResetAt) {
			delete(l.entries, identity)
			evicted++
		}
	}
	remaining := len(l.entries)
	l.mu.Unlock()

	if l.onSweep != nil {
		l.onSweep(evicted, remaining)
	}
	return evicted
}

// Len returns the number of tracked identities.
func (l *FixedWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Start launches the periodic sweep. It stops when ctx is cancelled or Stop
// is called. Calling Start on a running limiter is a no-op.
func (l *FixedWindow) Start(ctx context.Context) {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()
	if l.cancel != nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}

// Stop cancels the sweep task and waits for it to exit.
func (l *FixedWindow) Stop() {
	l.lifecycle.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the sweep task is active.
func (l *FixedWindow) Running() bool {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()
	if l.done == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}
