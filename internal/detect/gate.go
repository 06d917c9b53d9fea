package detect

import (
	"sync"
	"time"
)

// GateConfig holds the confidence threshold and the anti-feedback timers.
// These are tunables, not ground truth; the defaults reflect the most
// mature field configuration.
type GateConfig struct {
	// Threshold is the minimum confidence for a detection (default 0.40).
	Threshold float64
	// Mute suppresses detections for this long after a response action, so
	// the detector does not re-trigger on its own deterrent playback
	// (default 3 s).
	Mute time.Duration
	// Cooldown is the minimum spacing between response actions (default 15 s).
	Cooldown time.Duration
}

// DefaultGateConfig returns the shipped gate tuning.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Threshold: 0.40,
		Mute:      3 * time.Second,
		Cooldown:  15 * time.Second,
	}
}

// Decision is the gate's verdict for one classified window.
type Decision struct {
	// Detected reports the raw threshold comparison; it stays true during
	// the mute window so clients still see the classification.
	Detected bool
	// Counted is true when the detection was accepted: not muted and above
	// threshold. Only counted detections increment Detections.
	Counted bool
	// Respond is true when a new deterrent response action may fire.
	Respond bool
	// Detections is the running count of accepted detections.
	Detections int
}

// Gate applies the confidence threshold and the mute/cooldown protocol to
// classified windows. One Gate per session; the session's read and analysis
// goroutines both touch it, so the state is mutex-guarded.
type Gate struct {
	cfg GateConfig
	now func() time.Time

	mu           sync.Mutex
	muteUntil    time.Time
	lastResponse time.Time
	detections   int
}

// NewGate creates a gate with the given tuning. now may be nil, in which
// case time.Now is used; tests inject a fake clock.
func NewGate(cfg GateConfig, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{cfg: cfg, now: now}
}

// Evaluate gates one window's confidence score.
func (g *Gate) Evaluate(confidence float64) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	d := Decision{
		Detected:   confidence > g.cfg.Threshold,
		Detections: g.detections,
	}
	if !d.Detected {
		return d
	}

	now := g.now()
	if now.Before(g.muteUntil) {
		// Likely our own deterrent sound; report but do not count.
		return d
	}

	g.detections++
	d.Counted = true
	d.Detections = g.detections

	if g.lastResponse.IsZero() || now.Sub(g.lastResponse) >= g.cfg.Cooldown {
		g.lastResponse = now
		g.muteUntil = now.Add(g.cfg.Mute)
		d.Respond = true
	}

	return d
}

// Detections returns the number of accepted detections so far.
func (g *Gate) Detections() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.detections
}

// MutedUntil returns the end of the current anti-feedback mute window.
func (g *Gate) MutedUntil() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.muteUntil
}
