package onset

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/woodguard/server/domain/entities"
	"github.com/woodguard/server/domain/repositories"
	"github.com/woodguard/server/internal/audio"
	"github.com/woodguard/server/internal/dsp"
)

// Profile holds the empirically tuned rhythm classification bands. The
// values come from field observations of Great Spotted Woodpeckers and were
// revised several times; treat them as a default configuration, not truth.
type Profile struct {
	// Drumming (territorial): fast bursts, 10-38 hits/s, fairly regular.
	DrummingMinRate       float64
	DrummingMaxRate       float64
	DrummingMaxRegularity float64

	// Foraging (feeding taps): slow knocking, 3-9 hits/s, less regular.
	ForagingMinRate       float64
	ForagingMaxRate       float64
	ForagingMaxRegularity float64

	// MinPeaks rejects windows with fewer onset peaks outright.
	MinPeaks int

	// RMSFloor rejects windows quieter than this (post amplification)
	// before any spectral analysis happens.
	RMSFloor float64
}

// DefaultProfile returns the shipped classification profile.
func DefaultProfile() Profile {
	return Profile{
		DrummingMinRate:       10,
		DrummingMaxRate:       38,
		DrummingMaxRegularity: 0.40,
		ForagingMinRate:       3,
		ForagingMaxRate:       9,
		ForagingMaxRegularity: 0.50,
		MinPeaks:              2,
		RMSFloor:              0.015,
	}
}

// Classifier is the built-in onset/rhythm woodpecker detector. It profiles
// each window's onset-strength envelope, picks peaks, and maps the peak
// rate and regularity to a classification with a confidence score.
type Classifier struct {
	profiler   *dsp.Profiler
	peaks      dsp.PeakPickConfig
	profile    Profile
	windowSize int
	logger     *zap.Logger
}

var _ repositories.Classifier = (*Classifier)(nil)

// NewClassifier builds the onset classifier for the given window size.
func NewClassifier(profilerCfg dsp.ProfilerConfig, peaks dsp.PeakPickConfig, profile Profile, windowSize int, logger *zap.Logger) (*Classifier, error) {
	if windowSize < profilerCfg.FrameLength {
		return nil, fmt.Errorf("window size %d is smaller than one analysis frame (%d)", windowSize, profilerCfg.FrameLength)
	}

	profiler, err := dsp.NewProfiler(profilerCfg)
	if err != nil {
		return nil, fmt.Errorf("onset profiler: %w", err)
	}

	return &Classifier{
		profiler:   profiler,
		peaks:      peaks,
		profile:    profile,
		windowSize: windowSize,
		logger:     logger,
	}, nil
}

// WindowSize implements repositories.Classifier.
func (c *Classifier) WindowSize() int {
	return c.windowSize
}

// Classify implements repositories.Classifier. Degenerate windows and
// numerical failures map to the "none" outcome; the error return exists
// for logging only.
func (c *Classifier) Classify(_ context.Context, window []float64) (entities.Analysis, error) {
	rms := audio.RMS(window)
	if rms < c.profile.RMSFloor {
		// Too quiet to be a woodpecker; skip the expensive analysis.
		return entities.NoAnalysis(), nil
	}

	envelope := c.profiler.Envelope(window)
	if envelope == nil {
		return entities.NoAnalysis(), fmt.Errorf("window of %d samples is too short for onset analysis", len(window))
	}

	peaks := dsp.PickPeaks(envelope, c.peaks)
	if len(peaks) < c.profile.MinPeaks {
		return entities.NoAnalysis(), nil
	}

	duration := float64(len(window)) / c.profiler.Config().SampleRate
	rate := float64(len(peaks)) / duration
	regularity := c.regularity(peaks)

	analysis := c.classifyRhythm(rate, regularity, len(peaks))
	if analysis.Classification != entities.ClassificationNone {
		c.logger.Info("rhythm pattern",
			zap.String("classification", string(analysis.Classification)),
			zap.Float64("rate", rate),
			zap.Float64("regularity", regularity),
			zap.Float64("rms", rms),
			zap.Float64("confidence", analysis.Confidence))
	}
	return analysis, nil
}

// classifyRhythm maps a window's rhythm metrics to a classification.
// Drumming takes precedence over foraging when both bands would match.
func (c *Classifier) classifyRhythm(rate, regularity float64, peakCount int) entities.Analysis {
	metrics := entities.RhythmMetrics{
		Rate:       rate,
		Regularity: regularity,
		PeakCount:  peakCount,
	}

	switch {
	case rate >= c.profile.DrummingMinRate && rate <= c.profile.DrummingMaxRate &&
		regularity <= c.profile.DrummingMaxRegularity:
		return entities.Analysis{
			Classification: entities.ClassificationDrumming,
			Confidence:     min(0.95, 0.6+(1.0-regularity)*0.4),
			Metrics:        metrics,
		}

	case rate >= c.profile.ForagingMinRate && rate <= c.profile.ForagingMaxRate &&
		regularity <= c.profile.ForagingMaxRegularity:
		return entities.Analysis{
			Classification: entities.ClassificationForaging,
			Confidence:     min(0.75, 0.5+rate/20.0),
			Metrics:        metrics,
		}
	}

	return entities.Analysis{
		Classification: entities.ClassificationNone,
		Metrics:        metrics,
	}
}

// regularity returns the coefficient of variation of inter-peak intervals.
// Fewer than 2 intervals is maximally irregular (1.0), which disqualifies
// the window from both rhythm classes.
func (c *Classifier) regularity(peaks []int) float64 {
	if len(peaks) < 3 {
		return 1.0
	}

	intervals := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		intervals[i-1] = c.profiler.FrameTime(peaks[i]) - c.profiler.FrameTime(peaks[i-1])
	}

	mean, err := stats.Mean(intervals)
	if err != nil || mean == 0 {
		return 1.0
	}
	stddev, err := stats.StandardDeviationPopulation(intervals)
	if err != nil {
		return 1.0
	}
	return stddev / mean
}
