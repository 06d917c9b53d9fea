package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
	if cfg.SampleRate != 22050 {
		t.Errorf("Expected sample rate 22050, got %d", cfg.SampleRate)
	}
	if cfg.ChunkSamples != 8000 {
		t.Errorf("Expected 8000 chunk samples, got %d", cfg.ChunkSamples)
	}
	if cfg.AmplifyGain != 15.0 {
		t.Errorf("Expected gain 15, got %f", cfg.AmplifyGain)
	}
	if cfg.ConfidenceThreshold != 0.40 {
		t.Errorf("Expected threshold 0.40, got %f", cfg.ConfidenceThreshold)
	}
	if cfg.MuteDuration != 3*time.Second {
		t.Errorf("Expected 3s mute, got %s", cfg.MuteDuration)
	}
	if cfg.ResponseCooldown != 15*time.Second {
		t.Errorf("Expected 15s cooldown, got %s", cfg.ResponseCooldown)
	}
	if cfg.IdleTimeout != 30*time.Second {
		t.Errorf("Expected 30s idle timeout, got %s", cfg.IdleTimeout)
	}
	if cfg.Analyzer != AnalyzerOnset {
		t.Errorf("Expected onset analyzer, got %s", cfg.Analyzer)
	}
	if cfg.RMSFloor != 0.015 {
		t.Errorf("Expected RMS floor 0.015, got %f", cfg.RMSFloor)
	}
	if cfg.ResponseMode != "mixed" {
		t.Errorf("Expected mixed response mode, got %s", cfg.ResponseMode)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ANALYZER", "species")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.6")
	t.Setenv("IDLE_TIMEOUT", "45s")
	t.Setenv("RESPONSE_MODE", "silent")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.Analyzer != AnalyzerSpecies {
		t.Errorf("Expected species analyzer, got %s", cfg.Analyzer)
	}
	if cfg.ConfidenceThreshold != 0.6 {
		t.Errorf("Expected threshold 0.6, got %f", cfg.ConfidenceThreshold)
	}
	if cfg.IdleTimeout != 45*time.Second {
		t.Errorf("Expected 45s idle timeout, got %s", cfg.IdleTimeout)
	}
	if cfg.ResponseMode != "silent" {
		t.Errorf("Expected silent response mode, got %s", cfg.ResponseMode)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad analyzer", "ANALYZER", "psychic"},
		{"non-numeric threshold", "CONFIDENCE_THRESHOLD", "high"},
		{"threshold above one", "CONFIDENCE_THRESHOLD", "1.5"},
		{"bad duration", "IDLE_TIMEOUT", "soon"},
		{"negative sample rate", "SAMPLE_RATE", "-1"},
		{"bad response mode", "RESPONSE_MODE", "shouting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestWindowSizePerAnalyzer(t *testing.T) {
	cfg := Config{
		SampleRate:           22050,
		ChunkSamples:         8000,
		SpeciesWindowSeconds: 3.0,
		Analyzer:             AnalyzerOnset,
	}
	if got := cfg.WindowSize(); got != 8000 {
		t.Errorf("Expected onset window of 8000 samples, got %d", got)
	}

	cfg.Analyzer = AnalyzerSpecies
	if got := cfg.WindowSize(); got != 66150 {
		t.Errorf("Expected species window of 66150 samples, got %d", got)
	}
}

func TestBufferCapacity(t *testing.T) {
	cfg := Config{SampleRate: 22050, BufferSeconds: 10}
	if got := cfg.BufferCapacity(); got != 220500 {
		t.Errorf("Expected buffer capacity 220500, got %d", got)
	}
}
