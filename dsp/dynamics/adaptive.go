package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-dynamics/dsp/core"
)

const (
	defaultAdaptiveScale = 100.0
	defaultAdaptiveMax   = 3.0
	maxAdaptiveMax       = 8.0
)

// AdaptiveRelease scales the limiter release time with the variance of
// recent detector peaks: steady material yields a slow release, dense
// transients pull the multiplier back toward unity.
//
// The window statistics are kept as running sums and rescanned once per
// window length so cancellation error cannot accumulate.
type AdaptiveRelease struct {
	window []float64
	pos    int
	filled int

	sum   float64
	sumSq float64

	scale         float64
	maxMultiplier float64

	resyncCountdown int
}

// NewAdaptiveRelease creates an adaptive-release tracker over a window of
// the given length in samples.
func NewAdaptiveRelease(windowSamples int) (*AdaptiveRelease, error) {
	if windowSamples <= 0 {
		return nil, fmt.Errorf("adaptive release window must be positive: %d", windowSamples)
	}

	a := &AdaptiveRelease{
		window:          make([]float64, windowSamples),
		scale:           defaultAdaptiveScale,
		maxMultiplier:   defaultAdaptiveMax,
		resyncCountdown: windowSamples,
	}

	return a, nil
}

// SetCurve adjusts the variance-to-multiplier mapping. Scale controls how
// quickly variance pulls the multiplier down; maxMultiplier caps the slow
// end of the release range.
func (a *AdaptiveRelease) SetCurve(scale, maxMultiplier float64) error {
	if scale <= 0 || !core.IsFinite(scale) {
		return fmt.Errorf("adaptive release scale must be positive: %f", scale)
	}

	if maxMultiplier < 1.0 || maxMultiplier > maxAdaptiveMax || !core.IsFinite(maxMultiplier) {
		return fmt.Errorf("adaptive release max multiplier must be in [1, %f]: %f", maxAdaptiveMax, maxMultiplier)
	}

	a.scale = scale
	a.maxMultiplier = maxMultiplier

	return nil
}

// Push records a detector peak sample.
func (a *AdaptiveRelease) Push(peak float64) {
	old := a.window[a.pos]
	a.window[a.pos] = peak

	a.pos++
	if a.pos >= len(a.window) {
		a.pos = 0
	}

	if a.filled < len(a.window) {
		a.filled++
	}

	a.sum += peak - old
	a.sumSq += peak*peak - old*old

	a.resyncCountdown--
	if a.resyncCountdown <= 0 {
		a.resync()
	}
}

// Multiplier returns the current release-time multiplier in
// [1, maxMultiplier]. Low peak variance maps to the slow end.
func (a *AdaptiveRelease) Multiplier() float64 {
	if a.filled == 0 {
		return 1.0
	}

	n := float64(a.filled)
	mean := a.sum / n

	variance := a.sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	return 1.0 + (a.maxMultiplier-1.0)/(1.0+variance*a.scale)
}

// Reset clears the window and statistics.
func (a *AdaptiveRelease) Reset() {
	for i := range a.window {
		a.window[i] = 0
	}

	a.pos = 0
	a.filled = 0
	a.sum = 0
	a.sumSq = 0
	a.resyncCountdown = len(a.window)
}

func (a *AdaptiveRelease) resync() {
	var sum, sumSq float64

	limit := a.filled
	if limit > len(a.window) {
		limit = len(a.window)
	}

	for i := 0; i < limit; i++ {
		v := a.window[i]
		sum += v
		sumSq += v * v
	}

	// Window entries beyond filled are zero and do not contribute.
	a.sum = sum
	a.sumSq = sumSq
	a.resyncCountdown = len(a.window)
}
