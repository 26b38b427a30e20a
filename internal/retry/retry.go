// Package retry provides the bounded exponential backoff discipline shared
// by every Provider-facing call. Retry state is local to one attempt
// sequence; a throttled slice never poisons a sibling's budget.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy defines retry behavior for one logical operation.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultPolicy returns the Provider retry discipline: five attempts,
// exponential backoff from one second capped at sixty.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Delay computes the backoff before the given retry. Attempt is 1-based:
// Delay(1) is the wait after the first failure. Jitter scales the delay by a
// uniform factor in [0.5, 1.0] so synchronized workers fan out.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if max := float64(p.MaxDelay); d > max {
		d = max
	}
	if p.Jitter {
		d *= 0.5 + rand.Float64()*0.5
	}
	return time.Duration(d)
}

// Wait blocks for the given delay or until the context is done, whichever
// comes first.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
