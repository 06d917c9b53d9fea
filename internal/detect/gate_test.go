package detect

import (
	"sync"
	"testing"
	"time"
)

func newTestGate() (*Gate, *time.Time) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate(DefaultGateConfig(), func() time.Time { return now })
	return g, &now
}

func TestGateBelowThreshold(t *testing.T) {
	g, _ := newTestGate()

	d := g.Evaluate(0.3)
	if d.Detected || d.Counted || d.Respond {
		t.Errorf("Expected nothing below threshold, got %+v", d)
	}
	if d.Detections != 0 {
		t.Errorf("Expected 0 detections, got %d", d.Detections)
	}
}

func TestGateThresholdIsExclusive(t *testing.T) {
	g, _ := newTestGate()

	if d := g.Evaluate(0.40); d.Detected {
		t.Error("Confidence equal to the threshold must not detect")
	}
	if d := g.Evaluate(0.41); !d.Detected {
		t.Error("Confidence just above the threshold must detect")
	}
}

func TestGateFirstDetectionResponds(t *testing.T) {
	g, _ := newTestGate()

	d := g.Evaluate(0.8)
	if !d.Detected || !d.Counted || !d.Respond {
		t.Errorf("Expected detected+counted+respond on first detection, got %+v", d)
	}
	if d.Detections != 1 {
		t.Errorf("Expected 1 detection, got %d", d.Detections)
	}
}

func TestGateMuteSuppressesCounting(t *testing.T) {
	g, now := newTestGate()

	g.Evaluate(0.8) // respond, mute starts

	// 1s into the 3s mute: still reported, not counted, no response.
	*now = now.Add(time.Second)
	d := g.Evaluate(0.9)
	if !d.Detected {
		t.Error("Detection must stay visible during the mute window")
	}
	if d.Counted || d.Respond {
		t.Errorf("Muted detection must not count or respond, got %+v", d)
	}
	if d.Detections != 1 {
		t.Errorf("Expected counter to stay at 1, got %d", d.Detections)
	}

	// 3.5s: mute expired, counting resumes, but cooldown still holds.
	*now = now.Add(2500 * time.Millisecond)
	d = g.Evaluate(0.9)
	if !d.Detected || !d.Counted {
		t.Errorf("Expected counted detection after mute expiry, got %+v", d)
	}
	if d.Respond {
		t.Error("Cooldown must block a second response at 3.5s")
	}
	if d.Detections != 2 {
		t.Errorf("Expected 2 detections, got %d", d.Detections)
	}
}

func TestGateCooldownAllowsNextResponse(t *testing.T) {
	g, now := newTestGate()

	g.Evaluate(0.8)

	*now = now.Add(16 * time.Second)
	d := g.Evaluate(0.5)
	if !d.Respond {
		t.Error("Expected a response after the cooldown elapsed")
	}
	if d.Detections != 2 {
		t.Errorf("Expected 2 detections, got %d", d.Detections)
	}
	if g.MutedUntil() != now.Add(3*time.Second) {
		t.Errorf("Expected mute to rearm with the response, got %v", g.MutedUntil())
	}
}

func TestGateConcurrentEvaluateAndRead(t *testing.T) {
	g := NewGate(DefaultGateConfig(), nil)

	// The read goroutine polls the counter for progress messages while the
	// analysis goroutine evaluates windows; both must be safe together.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				g.Evaluate(0.5)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = g.Detections()
				_ = g.MutedUntil()
			}
		}()
	}
	wg.Wait()

	if g.Detections() == 0 {
		t.Error("Expected counted detections after concurrent evaluation")
	}
}

func TestGateSubThresholdDuringMute(t *testing.T) {
	g, now := newTestGate()

	g.Evaluate(0.8)
	*now = now.Add(time.Second)

	d := g.Evaluate(0.2)
	if d.Detected {
		t.Error("Sub-threshold confidence must not report detected, muted or not")
	}
}
