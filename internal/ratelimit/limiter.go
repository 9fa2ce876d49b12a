// Package ratelimit paces scripted sends so a run never exceeds a frames/sec ceiling.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer spaces frames evenly at a fixed rate with a burst of one.
// A nil *Pacer never waits, so callers can hold one unconditionally.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a Pacer allowing fps frames per second, or nil when fps <= 0.
func NewPacer(fps int) *Pacer {
	if fps <= 0 {
		return nil
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(fps), 1)}
}

// Wait blocks until the next frame may be sent or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// Rate reports the configured frames per second, 0 for an unlimited Pacer.
func (p *Pacer) Rate() float64 {
	if p == nil {
		return 0
	}
	return float64(p.limiter.Limit())
}
