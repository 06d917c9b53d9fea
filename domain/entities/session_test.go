package entities

import (
	"testing"
	"time"
)

func TestSessionCreation(t *testing.T) {
	deviceID := "test-device-123"
	session := NewSession(deviceID)

	if session.DeviceID != deviceID {
		t.Errorf("Expected device ID %s, got %s", deviceID, session.DeviceID)
	}
	if session.ID == "" {
		t.Error("Expected a generated session ID")
	}
	if session.ChunkCount != 0 {
		t.Errorf("Expected zero chunks, got %d", session.ChunkCount)
	}
	if session.LastActivityAt != session.StartedAt {
		t.Error("Expected last activity to equal start time")
	}
}

func TestCountChunk(t *testing.T) {
	session := NewSession("test-device")

	for want := 1; want <= 3; want++ {
		if got := session.CountChunk(); got != want {
			t.Errorf("Expected chunk count %d, got %d", want, got)
		}
	}
}

func TestIdleTracking(t *testing.T) {
	session := NewSession("test-device")
	start := session.LastActivityAt

	if got := session.IdleFor(start.Add(7 * time.Second)); got != 7*time.Second {
		t.Errorf("Expected 7s idle, got %s", got)
	}

	session.Touch(start.Add(10 * time.Second))
	if got := session.IdleFor(start.Add(12 * time.Second)); got != 2*time.Second {
		t.Errorf("Expected 2s idle after touch, got %s", got)
	}
}

func TestTimeoutNotifiedOnce(t *testing.T) {
	session := NewSession("test-device")

	if !session.MarkTimeoutNotified() {
		t.Error("First mark must succeed")
	}
	if session.MarkTimeoutNotified() {
		t.Error("Second mark must report already notified")
	}

	// New activity rearms the notice.
	session.Touch(time.Now())
	if !session.MarkTimeoutNotified() {
		t.Error("Mark must succeed again after activity")
	}
}
