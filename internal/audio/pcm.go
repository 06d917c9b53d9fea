package audio

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrOddPayload indicates a PCM16 payload with a trailing half sample.
var ErrOddPayload = errors.New("pcm16 payload length must be even")

// ErrEmptyPayload indicates an audio message with no samples.
var ErrEmptyPayload = errors.New("pcm16 payload is empty")

const pcm16Scale = 1.0 / 32768.0

// DecodePCM16 converts little-endian signed 16-bit PCM bytes into
// normalized float64 samples in [-1, 1).
func DecodePCM16(data []byte) ([]float64, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(data)%2 != 0 {
		return nil, ErrOddPayload
	}

	samples := make([]float64, len(data)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(data[2*i:]))
		samples[i] = float64(s) * pcm16Scale
	}
	return samples, nil
}

// Amplify scales samples in place by gain and clamps to [-1, 1].
// The default gain of 15 compensates for quiet phone microphones.
func Amplify(samples []float64, gain float64) {
	for i, s := range samples {
		v := s * gain
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		samples[i] = v
	}
}

// RMS returns the root-mean-square amplitude of the samples.
// An empty slice yields 0.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquare float64
	for _, s := range samples {
		sumSquare += s * s
	}
	return math.Sqrt(sumSquare / float64(len(samples)))
}
