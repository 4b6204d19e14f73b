// Package weighting implements the ITU-R BS.1770 K-weighting pre-filter
// used for loudness measurement.
package weighting

import (
	"math"

	"github.com/cwbudde/algo-dynamics/dsp/filter/biquad"
	"github.com/cwbudde/algo-dynamics/dsp/filter/design"
)

// BS.1770 pre-filter parameters.
const (
	shelfFreqHz = 1500.0
	shelfGainDB = 4.0
	highpassHz  = 38.0
)

// K is a single-channel K-weighting filter: a high-frequency shelf
// modelling the acoustic effect of the head, followed by a highpass
// removing low-frequency content that contributes little to perceived
// loudness. Instantiate one K per channel.
type K struct {
	shelf *biquad.Section
	hpf   *biquad.Section
}

// NewK returns a K-weighting filter pair for the given sample rate.
//
// Panics if sampleRate <= 0.
func NewK(sampleRate float64) *K {
	if sampleRate <= 0 {
		panic("weighting: sample rate must be positive")
	}

	q := 1.0 / math.Sqrt2

	return &K{
		shelf: biquad.NewSection(design.HighShelf(shelfFreqHz, shelfGainDB, q, sampleRate)),
		hpf:   biquad.NewSection(design.Highpass(highpassHz, q, sampleRate)),
	}
}

// ProcessSample filters one sample through the shelf and highpass stages.
func (k *K) ProcessSample(x float64) float64 {
	return k.hpf.ProcessSample(k.shelf.ProcessSample(x))
}

// ProcessBlock filters buf in-place.
func (k *K) ProcessBlock(buf []float64) {
	k.shelf.ProcessBlock(buf)
	k.hpf.ProcessBlock(buf)
}

// Reset clears both filter stages.
func (k *K) Reset() {
	k.shelf.Reset()
	k.hpf.Reset()
}

// MagnitudeDB returns the cascade magnitude response in dB at freqHz.
func (k *K) MagnitudeDB(freqHz, sampleRate float64) float64 {
	return k.shelf.MagnitudeDB(freqHz, sampleRate) + k.hpf.MagnitudeDB(freqHz, sampleRate)
}
