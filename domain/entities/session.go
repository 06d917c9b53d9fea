package entities

import (
	"time"

	"github.com/google/uuid"
)

// Session is the per-connection detection session state. It is created on
// connect, destroyed on disconnect, and mutated exclusively by the owning
// connection's processing loop; no cross-session sharing.
type Session struct {
	ID             string
	DeviceID       string
	StartedAt      time.Time
	LastActivityAt time.Time
	ChunkCount     int

	timeoutNotified bool
}

// NewSession creates a fresh session for a connecting device.
func NewSession(deviceID string) *Session {
	now := time.Now()
	return &Session{
		ID:             uuid.NewString(),
		DeviceID:       deviceID,
		StartedAt:      now,
		LastActivityAt: now,
	}
}

// Touch records inbound traffic (audio or control) and rearms the idle
// timeout notice.
func (s *Session) Touch(now time.Time) {
	s.LastActivityAt = now
	s.timeoutNotified = false
}

// CountChunk increments the running chunk counter and returns the new value.
func (s *Session) CountChunk() int {
	s.ChunkCount++
	return s.ChunkCount
}

// IdleFor reports how long the session has gone without inbound traffic.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivityAt)
}

// MarkTimeoutNotified flags that the one-time timeout notice was sent.
// Returns false if the notice was already sent for the current idle period,
// so the caller emits it exactly once.
func (s *Session) MarkTimeoutNotified() bool {
	if s.timeoutNotified {
		return false
	}
	s.timeoutNotified = true
	return true
}
