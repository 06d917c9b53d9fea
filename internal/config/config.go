package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AnalyzerMode selects the classification pipeline.
type AnalyzerMode string

const (
	// AnalyzerOnset is the built-in onset/rhythm heuristic over short
	// (~0.36 s) windows.
	AnalyzerOnset AnalyzerMode = "onset"
	// AnalyzerSpecies buffers long (~3 s) windows for an external
	// species-level model.
	AnalyzerSpecies AnalyzerMode = "species"
)

// Config holds all runtime configuration, read once at startup and shared
// read-only across sessions. Every empirically tuned detection constant is
// exposed here; the defaults are the most mature field values, not ground
// truth.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// SampleRate is the expected PCM sample rate in Hz.
	SampleRate int
	// ChunkSamples is the negotiated per-message chunk length
	// (8000 samples = 0.36 s at 22.05 kHz).
	ChunkSamples int
	// AmplifyGain scales decoded samples before clamping; compensates for
	// quiet phone microphones.
	AmplifyGain float64
	// BufferSeconds caps the per-connection sample buffer.
	BufferSeconds float64

	// Analyzer selects the classification pipeline.
	Analyzer AnalyzerMode
	// SpeciesWindowSeconds is the analysis window for species mode.
	SpeciesWindowSeconds float64

	// ConfidenceThreshold gates detections (historically 0.75 -> 0.50 -> 0.40).
	ConfidenceThreshold float64
	// MuteDuration suppresses detections after a deterrent response.
	MuteDuration time.Duration
	// ResponseCooldown spaces deterrent responses apart.
	ResponseCooldown time.Duration
	// IdleTimeout is how long a session may stay silent before the one-time
	// timeout notice.
	IdleTimeout time.Duration

	// RMSFloor rejects windows quieter than this before analysis.
	RMSFloor float64
	// PeakDelta and PeakWait tune the onset peak picker.
	PeakDelta float64
	PeakWait  int

	// SoundsDir is the deterrent sound library root.
	SoundsDir string
	// ResponseMode selects which deterrent sound categories may play
	// (predators, woodpecker, mixed, silent).
	ResponseMode string

	// MongoURI enables MongoDB detection history when non-empty.
	MongoURI      string
	MongoDatabase string

	// JWTSecret enables device authentication on /ws when non-empty.
	JWTSecret string
	// ProvisionKey authorizes the device token endpoint.
	ProvisionKey string
}

// Load reads environment variables (optionally from a .env file) into a
// validated Config. Invalid values are fatal at process start; sessions
// never see configuration errors.
func Load() (Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := Config{
		Port:                 envString("PORT", "8080"),
		SampleRate:           22050,
		ChunkSamples:         8000,
		AmplifyGain:          15.0,
		BufferSeconds:        10.0,
		Analyzer:             AnalyzerOnset,
		SpeciesWindowSeconds: 3.0,
		ConfidenceThreshold:  0.40,
		MuteDuration:         3 * time.Second,
		ResponseCooldown:     15 * time.Second,
		IdleTimeout:          30 * time.Second,
		RMSFloor:             0.015,
		PeakDelta:            0.6,
		PeakWait:             8,
		SoundsDir:            envString("SOUNDS_DIR", "static/sounds"),
		ResponseMode:         envString("RESPONSE_MODE", "mixed"),
		MongoURI:             os.Getenv("MONGODB_URI"),
		MongoDatabase:        envString("MONGODB_DATABASE", "woodguard"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		ProvisionKey:         os.Getenv("PROVISION_KEY"),
	}

	var err error
	if cfg.SampleRate, err = envInt("SAMPLE_RATE", cfg.SampleRate); err != nil {
		return Config{}, err
	}
	if cfg.ChunkSamples, err = envInt("CHUNK_SAMPLES", cfg.ChunkSamples); err != nil {
		return Config{}, err
	}
	if cfg.AmplifyGain, err = envFloat("AMPLIFY_GAIN", cfg.AmplifyGain); err != nil {
		return Config{}, err
	}
	if cfg.BufferSeconds, err = envFloat("BUFFER_SECONDS", cfg.BufferSeconds); err != nil {
		return Config{}, err
	}
	if cfg.SpeciesWindowSeconds, err = envFloat("SPECIES_WINDOW_SECONDS", cfg.SpeciesWindowSeconds); err != nil {
		return Config{}, err
	}
	if cfg.ConfidenceThreshold, err = envFloat("CONFIDENCE_THRESHOLD", cfg.ConfidenceThreshold); err != nil {
		return Config{}, err
	}
	if cfg.MuteDuration, err = envDuration("MUTE_DURATION", cfg.MuteDuration); err != nil {
		return Config{}, err
	}
	if cfg.ResponseCooldown, err = envDuration("RESPONSE_COOLDOWN", cfg.ResponseCooldown); err != nil {
		return Config{}, err
	}
	if cfg.IdleTimeout, err = envDuration("IDLE_TIMEOUT", cfg.IdleTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RMSFloor, err = envFloat("RMS_FLOOR", cfg.RMSFloor); err != nil {
		return Config{}, err
	}
	if cfg.PeakDelta, err = envFloat("PEAK_DELTA", cfg.PeakDelta); err != nil {
		return Config{}, err
	}
	if cfg.PeakWait, err = envInt("PEAK_WAIT", cfg.PeakWait); err != nil {
		return Config{}, err
	}

	if mode := os.Getenv("ANALYZER"); mode != "" {
		switch AnalyzerMode(mode) {
		case AnalyzerOnset, AnalyzerSpecies:
			cfg.Analyzer = AnalyzerMode(mode)
		default:
			return Config{}, fmt.Errorf("ANALYZER must be %q or %q, got %q", AnalyzerOnset, AnalyzerSpecies, mode)
		}
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.ChunkSamples <= 0 {
		return fmt.Errorf("CHUNK_SAMPLES must be positive, got %d", c.ChunkSamples)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be in [0,1], got %f", c.ConfidenceThreshold)
	}
	if c.BufferSeconds <= 0 {
		return fmt.Errorf("BUFFER_SECONDS must be positive, got %f", c.BufferSeconds)
	}
	if c.SpeciesWindowSeconds <= 0 {
		return fmt.Errorf("SPECIES_WINDOW_SECONDS must be positive, got %f", c.SpeciesWindowSeconds)
	}
	if c.MuteDuration < 0 || c.ResponseCooldown < 0 || c.IdleTimeout <= 0 {
		return fmt.Errorf("durations must be positive (mute=%s cooldown=%s idle=%s)",
			c.MuteDuration, c.ResponseCooldown, c.IdleTimeout)
	}
	switch c.ResponseMode {
	case "predators", "woodpecker", "mixed", "silent":
	default:
		return fmt.Errorf("RESPONSE_MODE must be predators, woodpecker, mixed or silent, got %q", c.ResponseMode)
	}
	return nil
}

// BufferCapacity returns the sample-buffer cap in samples.
func (c Config) BufferCapacity() int {
	return int(float64(c.SampleRate) * c.BufferSeconds)
}

// WindowSize returns the analysis window size in samples for the selected
// analyzer.
func (c Config) WindowSize() int {
	if c.Analyzer == AnalyzerSpecies {
		return int(float64(c.SampleRate) * c.SpeciesWindowSeconds)
	}
	return c.ChunkSamples
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 15s, got %q", key, v)
	}
	return d, nil
}
