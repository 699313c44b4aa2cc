package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/localnews/internal/metrics"
)

// Pacer spaces out feed requests with a token bucket.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a Pacer allowing rps requests per second with a burst of 1.
// A non-positive rps disables pacing.
func NewPacer(rps float64) *Pacer {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until a request may be issued, respecting the context.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	// Only waits that actually blocked are worth recording.
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveRateLimitDelay(d)
	}
	return nil
}
