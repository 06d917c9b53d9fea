package dsp

// PeakPickConfig tunes the adaptive local-maximum peak picker. The
// defaults are deliberately strict to suppress noise-driven false peaks.
type PeakPickConfig struct {
	// PreMax/PostMax bound the local-maximum neighborhood in frames.
	PreMax  int
	PostMax int
	// PreAvg/PostAvg bound the local-average neighborhood in frames.
	PreAvg  int
	PostAvg int
	// Delta is the minimum excess over the local average.
	Delta float64
	// Wait is the minimum spacing between accepted peaks in frames.
	Wait int
}

// DefaultPeakPickConfig returns the tuned picking parameters.
func DefaultPeakPickConfig() PeakPickConfig {
	return PeakPickConfig{
		PreMax:  5,
		PostMax: 5,
		PreAvg:  10,
		PostAvg: 10,
		Delta:   0.6,
		Wait:    8,
	}
}

// PickPeaks extracts candidate event frames from an onset envelope.
// A frame is a peak only if it is the maximum of its [i-PreMax, i+PostMax]
// neighborhood, exceeds the [i-PreAvg, i+PostAvg] average by at least
// Delta, and lies more than Wait frames after the previous accepted peak.
// The returned indices are strictly increasing.
func PickPeaks(envelope []float64, cfg PeakPickConfig) []int {
	if len(envelope) == 0 {
		return nil
	}

	var peaks []int
	lastPeak := -(cfg.Wait + 1)

	for i, v := range envelope {
		lo := max(0, i-cfg.PreMax)
		hi := min(len(envelope), i+cfg.PostMax+1)
		isMax := true
		for j := lo; j < hi; j++ {
			if envelope[j] > v {
				isMax = false
				break
			}
		}
		if !isMax {
			continue
		}

		lo = max(0, i-cfg.PreAvg)
		hi = min(len(envelope), i+cfg.PostAvg+1)
		var sum float64
		for j := lo; j < hi; j++ {
			sum += envelope[j]
		}
		avg := sum / float64(hi-lo)
		if v < avg+cfg.Delta {
			continue
		}

		if i-lastPeak <= cfg.Wait {
			continue
		}

		peaks = append(peaks, i)
		lastPeak = i
	}

	return peaks
}
