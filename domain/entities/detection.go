package entities

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Classification labels the acoustic pattern found in one analysis window.
type Classification string

const (
	ClassificationDrumming Classification = "drumming"
	ClassificationForaging Classification = "foraging"
	ClassificationNone     Classification = "none"
)

// RhythmMetrics describes the tap pattern extracted from one analysis window.
type RhythmMetrics struct {
	// Rate is the number of detected peaks per second.
	Rate float64 `json:"rate" bson:"rate"`
	// Regularity is the coefficient of variation of inter-peak intervals.
	// Lower values indicate a steadier rhythm; 1.0 means too few peaks to tell.
	Regularity float64 `json:"regularity" bson:"regularity"`
	// PeakCount is the number of onset peaks found in the window.
	PeakCount int `json:"peak_count" bson:"peak_count"`
}

// Analysis is the outcome of classifying a single analysis window.
// The zero value (classification "" / confidence 0) is not valid; use
// NoAnalysis as the designated recovery value when analysis fails.
type Analysis struct {
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Metrics        RhythmMetrics  `json:"metrics"`
	// Species is set only by species-level classifiers.
	Species string `json:"species,omitempty"`
}

// NoAnalysis is the recovery value for failed or empty analyses.
// Degenerate windows, silence and numerical failures all map to it.
func NoAnalysis() Analysis {
	return Analysis{Classification: ClassificationNone, Metrics: RhythmMetrics{Regularity: 1.0}}
}

// DetectionResult is the per-window outcome emitted to the client.
// Immutable once produced.
type DetectionResult struct {
	Detected       bool           `json:"detected"`
	Confidence     float64        `json:"confidence"`
	Classification Classification `json:"classification"`
	Species        string         `json:"species,omitempty"`
	Chunk          int            `json:"chunk"`
	Detections     int            `json:"detections"`
	Timestamp      time.Time      `json:"timestamp"`
}

// DetectionEvent is the persisted record of an accepted detection.
type DetectionEvent struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DeviceID       string             `json:"device_id" bson:"device_id"`
	SessionID      string             `json:"session_id" bson:"session_id"`
	Classification Classification     `json:"classification" bson:"classification"`
	Confidence     float64            `json:"confidence" bson:"confidence"`
	Species        string             `json:"species,omitempty" bson:"species,omitempty"`
	Metrics        RhythmMetrics      `json:"metrics" bson:"metrics"`
	Chunk          int                `json:"chunk" bson:"chunk"`
	DetectedAt     time.Time          `json:"detected_at" bson:"detected_at"`
}
