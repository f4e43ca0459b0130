package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates outbound requests. Acquire blocks until a token is
// available and only fails when ctx is done first.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// TokenBucket is a Limiter refilling at a fixed requests-per-second rate with
// a burst of one. Waiters are served in the order they reserved a token.
type TokenBucket struct {
	limiter *rate.Limiter
}

// New returns a token bucket for rps requests per second. A zero or negative
// rate yields a pass-through limiter.
func New(rps float64) Limiter {
	if rps <= 0 {
		return Unlimited{}
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (b *TokenBucket) Acquire(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// Unlimited never delays.
type Unlimited struct{}

func (Unlimited) Acquire(ctx context.Context) error {
	return nil
}

// Timed wraps a Limiter and reports how long each acquisition waited.
type Timed struct {
	Limiter
	Observe func(wait time.Duration)
}

func (t Timed) Acquire(ctx context.Context) error {
	start := time.Now()
	err := t.Limiter.Acquire(ctx)
	if t.Observe != nil {
		t.Observe(time.Since(start))
	}
	return err
}
