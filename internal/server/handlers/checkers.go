package handlers

import (
	"context"
	"errors"
	"fmt"
)

// Runner reports whether a background task is active.
type Runner interface {
	Running() bool
}

// Pinger verifies a connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LimiterChecker fails when the rate limiter sweep task has stopped.
func LimiterChecker(r Runner) HealthChecker {
	return CheckerFunc(func(context.Context) error {
		if r == nil || !r.Running() {
			return errors.New("rate limiter sweep is not running")
		}
		return nil
	})
}

// StoreChecker pings the history store.
func StoreChecker(p Pinger) HealthChecker {
	return CheckerFunc(func(ctx context.Context) error {
		if p == nil {
			return errors.New("store not configured")
		}
		return p.Ping(ctx)
	})
}

// AILinkChecker reports degraded when no provider credentials are configured.
func AILinkChecker(configured func() bool) HealthChecker {
	return CheckerFunc(func(context.Context) error {
		if configured == nil || !configured() {
			return fmt.Errorf("no ai provider configured: %w", ErrDegraded)
		}
		return nil
	})
}
