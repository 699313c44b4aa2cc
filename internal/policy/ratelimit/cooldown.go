// Package ratelimit gates and paces calls to the upstream news feed.
//
// Cooldown is coarse-grained: after the feed throttles us once, no further
// feed calls are attempted until the window has passed. Backoff is
// fine-grained: it spaces out retries of a single throttled request.
// Pacer optionally spreads requests out on the client side.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultCooldown is the window applied after a rate-limit signal.
const DefaultCooldown = 12 * time.Hour

// Cooldown remembers the most recent rate-limit signal.
type Cooldown struct {
	mu         sync.Mutex
	window     time.Duration
	lastSignal time.Time
}

// NewCooldown creates a Cooldown with the given window. A negative window is treated as zero.
func NewCooldown(window time.Duration) *Cooldown {
	if window < 0 {
		window = 0
	}
	return &Cooldown{window: window}
}

// ShouldSkip reports whether now still falls inside the cooldown window.
// Before any signal is recorded it always returns false.
func (c *Cooldown) ShouldSkip(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSignal.IsZero() {
		return false
	}
	return now.Before(c.lastSignal.Add(c.window))
}

// RecordSignal stores now as the latest rate-limit signal.
func (c *Cooldown) RecordSignal(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSignal = now
}

// LastSignal returns the latest recorded signal, or the zero time.
func (c *Cooldown) LastSignal() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSignal
}
