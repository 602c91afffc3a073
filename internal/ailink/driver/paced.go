package driver

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Paced wraps a Driver with a token bucket so outbound provider calls stay
// under a configured request rate. Calls block until a token is available or
// ctx is done.
type Paced struct {
	next    Driver
	limiter *rate.Limiter
}

// NewPaced returns next wrapped with a limiter allowing rps requests per
// second with the given burst. A non-positive rps returns next unchanged.
func NewPaced(next Driver, rps float64, burst int) Driver {
	if next == nil || rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Paced{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Name returns the wrapped driver's name.
func (p *Paced) Name() string { return p.next.Name() }

// Unwrap returns the wrapped driver.
func (p *Paced) Unwrap() Driver { return p.next }

// Complete waits for a token and then delegates.
func (p *Paced) Complete(ctx context.Context, req *Request) (*Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s pacing: %w", p.next.Name(), err)
	}
	return p.next.Complete(ctx, req)
}
