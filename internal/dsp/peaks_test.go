package dsp

import "testing"

func impulseEnvelope(length int, height float64, at ...int) []float64 {
	env := make([]float64, length)
	for _, i := range at {
		env[i] = height
	}
	return env
}

func TestPickPeaksEmpty(t *testing.T) {
	if peaks := PickPeaks(nil, DefaultPeakPickConfig()); peaks != nil {
		t.Errorf("Expected no peaks on empty envelope, got %v", peaks)
	}
}

func TestPickPeaksFindsImpulses(t *testing.T) {
	env := impulseEnvelope(60, 2.0, 5, 20, 35, 50)
	peaks := PickPeaks(env, DefaultPeakPickConfig())

	want := []int{5, 20, 35, 50}
	if len(peaks) != len(want) {
		t.Fatalf("Expected %d peaks, got %v", len(want), peaks)
	}
	for i := range peaks {
		if peaks[i] != want[i] {
			t.Errorf("Peak %d = %d, want %d", i, peaks[i], want[i])
		}
	}
}

func TestPickPeaksDeltaRejectsWeakBumps(t *testing.T) {
	// Local maxima that barely exceed the surrounding average must be
	// rejected by the delta margin.
	env := impulseEnvelope(60, 0.3, 10, 30, 50)
	peaks := PickPeaks(env, DefaultPeakPickConfig())
	if len(peaks) != 0 {
		t.Errorf("Expected no peaks below the delta margin, got %v", peaks)
	}
}

func TestPickPeaksWaitEnforcesSpacing(t *testing.T) {
	// Two equal impulses 5 frames apart; wait=8 allows only the first.
	env := impulseEnvelope(40, 2.0, 5, 10)
	peaks := PickPeaks(env, DefaultPeakPickConfig())
	if len(peaks) != 1 || peaks[0] != 5 {
		t.Errorf("Expected only the first impulse, got %v", peaks)
	}
}

func TestPickPeaksStrictlyIncreasing(t *testing.T) {
	env := impulseEnvelope(120, 3.0, 3, 15, 27, 50, 70, 99)
	peaks := PickPeaks(env, DefaultPeakPickConfig())
	for i := 1; i < len(peaks); i++ {
		if peaks[i] <= peaks[i-1] {
			t.Fatalf("Peaks not strictly increasing: %v", peaks)
		}
	}
}
