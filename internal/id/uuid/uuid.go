// Package uuid generates request identifiers.
package uuid

import (
	"github.com/google/uuid"
)

// RequestIDs issues time-ordered ids so request logs sort by arrival.
type RequestIDs struct{}

// New creates a RequestIDs generator.
func New() RequestIDs {
	return RequestIDs{}
}

// NewID returns a UUIDv7 string, or a random UUIDv4 if the clock-based
// generator fails.
func (RequestIDs) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Valid reports whether s is an acceptable client-supplied request id.
func Valid(s string) bool {
	if s == "" || len(s) > 128 {
		return false
	}
	for _, r := range s {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}
