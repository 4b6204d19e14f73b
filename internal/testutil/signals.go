package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// SteadyLevel generates an alternating-sign signal with constant absolute
// value. Useful for driving peak detectors to an exact steady state.
func SteadyLevel(amplitude float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		if i%2 == 0 {
			out[i] = amplitude
		} else {
			out[i] = -amplitude
		}
	}

	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))

	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}

	return out
}

// StereoSine generates matching left/right sine buffers, split into
// fixed-size blocks. Each returned element is one [2][]float64 quantum.
func StereoSine(freqHz, sampleRate, amplitude float64, blockSize, blocks int) [][][]float64 {
	full := DeterministicSine(freqHz, sampleRate, amplitude, blockSize*blocks)
	out := make([][][]float64, blocks)

	for b := range blocks {
		left := make([]float64, blockSize)
		right := make([]float64, blockSize)
		copy(left, full[b*blockSize:(b+1)*blockSize])
		copy(right, full[b*blockSize:(b+1)*blockSize])
		out[b] = [][]float64{left, right}
	}

	return out
}
