package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/localnews/internal/metrics"
	"github.com/JakeFAU/localnews/internal/news"
)

// Backoff defaults.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// Backoff implements linear retry spacing for throttled requests.
type Backoff struct {
	maxRetries int
	baseDelay  time.Duration
	sleeper    news.Sleeper
}

// NewBackoff builds a Backoff. Non-positive values fall back to the defaults.
func NewBackoff(maxRetries int, baseDelay time.Duration, sleeper news.Sleeper) *Backoff {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &Backoff{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleeper:    sleeper,
	}
}

// MaxRetries returns the number of attempts allowed per unit of work.
func (b *Backoff) MaxRetries() int {
	return b.maxRetries
}

// ShouldRetry reports whether another attempt is allowed after the given
// 1-indexed attempt was throttled.
func (b *Backoff) ShouldRetry(attempt int) bool {
	return attempt < b.maxRetries
}

// Delay returns the wait before re-issuing the call that failed on attempt.
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * b.baseDelay
}

// Wait sleeps for Delay(attempt) or until ctx ends.
func (b *Backoff) Wait(ctx context.Context, attempt int) error {
	d := b.Delay(attempt)
	metrics.ObserveBackoff(d)
	if b.sleeper == nil {
		return nil
	}
	if err := b.sleeper.Sleep(ctx, d); err != nil {
		return fmt.Errorf("backoff wait: %w", err)
	}
	return nil
}
