package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// ProfilerConfig configures the onset-strength computation.
type ProfilerConfig struct {
	// SampleRate of the incoming audio in Hz.
	SampleRate float64
	// FrameLength is the STFT frame size in samples (power of two).
	FrameLength int
	// HopLength is the advance between frames in samples; must be smaller
	// than FrameLength so frames overlap.
	HopLength int
	// Bands is the number of frequency bands the spectrum is pooled into
	// before flux aggregation.
	Bands int
	// MaxFrequency band-limits the analysis; energy above it is ignored.
	MaxFrequency float64
}

// DefaultProfilerConfig returns the profile the detector ships with:
// 22.05 kHz audio, 1024/512 STFT, 64 bands up to 8 kHz.
func DefaultProfilerConfig(sampleRate float64) ProfilerConfig {
	return ProfilerConfig{
		SampleRate:   sampleRate,
		FrameLength:  1024,
		HopLength:    512,
		Bands:        64,
		MaxFrequency: 8000,
	}
}

// Profiler computes an onset-strength envelope: one scalar per hop
// estimating how abruptly acoustic energy increases. The measure is the
// median across frequency bands of the positive change in log band energy
// between consecutive frames, band-limited to MaxFrequency.
//
// Workspace buffers are preallocated and guarded by a mutex so one Profiler
// can be shared by all sessions as an injected read-only dependency.
type Profiler struct {
	cfg ProfilerConfig
	fft *fourier.FFT

	mu        sync.Mutex
	winCoeffs []float64
	frame     []float64
	spectrum  []complex128
	bandLo    []int // first spectrum bin of each band
	bandHi    []int // one past the last bin of each band
	prevBands []float64
	curBands  []float64
	flux      []float64
}

// NewProfiler validates the configuration and preallocates the workspace.
func NewProfiler(cfg ProfilerConfig) (*Profiler, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", cfg.SampleRate)
	}
	if cfg.FrameLength <= 0 || cfg.FrameLength&(cfg.FrameLength-1) != 0 {
		return nil, fmt.Errorf("frame length must be a power of 2, got %d", cfg.FrameLength)
	}
	if cfg.HopLength <= 0 || cfg.HopLength >= cfg.FrameLength {
		return nil, fmt.Errorf("hop length must be in (0, frame length), got %d", cfg.HopLength)
	}
	if cfg.Bands <= 0 {
		return nil, fmt.Errorf("band count must be positive, got %d", cfg.Bands)
	}
	if cfg.MaxFrequency <= 0 || cfg.MaxFrequency > cfg.SampleRate/2 {
		cfg.MaxFrequency = cfg.SampleRate / 2
	}

	spectrumLen := cfg.FrameLength/2 + 1
	binHz := cfg.SampleRate / float64(cfg.FrameLength)
	maxBin := int(cfg.MaxFrequency / binHz)
	if maxBin >= spectrumLen {
		maxBin = spectrumLen - 1
	}
	if maxBin < cfg.Bands {
		return nil, fmt.Errorf("band-limited spectrum has %d bins, need at least %d", maxBin, cfg.Bands)
	}

	coeffs := make([]float64, cfg.FrameLength)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	window.Hann(coeffs)

	// Bins 1..maxBin split into contiguous bands; DC is skipped.
	bandLo := make([]int, cfg.Bands)
	bandHi := make([]int, cfg.Bands)
	for b := 0; b < cfg.Bands; b++ {
		bandLo[b] = 1 + b*maxBin/cfg.Bands
		bandHi[b] = 1 + (b+1)*maxBin/cfg.Bands
	}

	return &Profiler{
		cfg:       cfg,
		fft:       fourier.NewFFT(cfg.FrameLength),
		winCoeffs: coeffs,
		frame:     make([]float64, cfg.FrameLength),
		spectrum:  make([]complex128, spectrumLen),
		bandLo:    bandLo,
		bandHi:    bandHi,
		prevBands: make([]float64, cfg.Bands),
		curBands:  make([]float64, cfg.Bands),
		flux:      make([]float64, cfg.Bands),
	}, nil
}

// Config returns the profiler's configuration.
func (p *Profiler) Config() ProfilerConfig {
	return p.cfg
}

// Envelope computes the onset-strength envelope of one analysis window,
// one value per hop. Windows shorter than a single frame yield nil: the
// degenerate case maps to "no event" rather than an error.
func (p *Profiler) Envelope(samples []float64) []float64 {
	numFrames := 1 + (len(samples)-p.cfg.FrameLength)/p.cfg.HopLength
	if len(samples) < p.cfg.FrameLength || numFrames < 2 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	envelope := make([]float64, numFrames)
	for i := range p.prevBands {
		p.prevBands[i] = 0
	}

	for t := 0; t < numFrames; t++ {
		start := t * p.cfg.HopLength
		for i := 0; i < p.cfg.FrameLength; i++ {
			p.frame[i] = samples[start+i] * p.winCoeffs[i]
		}

		p.fft.Coefficients(p.spectrum, p.frame)

		for b := range p.curBands {
			var energy float64
			for bin := p.bandLo[b]; bin < p.bandHi[b]; bin++ {
				mag := cmplx.Abs(p.spectrum[bin])
				energy += mag * mag
			}
			p.curBands[b] = math.Log(1e-10 + energy)
		}

		if t == 0 {
			envelope[t] = 0
		} else {
			for b := range p.flux {
				d := p.curBands[b] - p.prevBands[b]
				if d < 0 {
					d = 0
				}
				p.flux[b] = d
			}
			med, err := stats.Median(p.flux)
			if err != nil {
				med = 0
			}
			envelope[t] = med
		}

		p.prevBands, p.curBands = p.curBands, p.prevBands
	}

	return envelope
}

// FrameTime converts an envelope frame index to seconds.
func (p *Profiler) FrameTime(frame int) float64 {
	return float64(frame) * float64(p.cfg.HopLength) / p.cfg.SampleRate
}
