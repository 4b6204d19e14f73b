package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dynamics/dsp/core"
)

// MinGain is the hard attenuation floor (-60 dB). No gain computer or
// envelope ever drives a gain below it.
const MinGain = 1e-3

// TimeCoeff derives a one-pole smoothing coefficient from a time constant
// in seconds at the given sample rate.
func TimeCoeff(sampleRate, seconds float64) float64 {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}

	return math.Exp(-1.0 / (sampleRate * seconds))
}

// Follower smooths a target-gain trajectory with asymmetric time
// constants: the fast attack coefficient applies while gain falls toward
// a lower target, the slow release coefficient while it recovers.
// Its value lives in [MinGain, 1].
type Follower struct {
	sampleRate float64
	attackSec  float64
	releaseSec float64

	attackCoeff  float64
	releaseCoeff float64
	value        float64
}

// NewFollower creates a follower with the given time constants in seconds.
func NewFollower(sampleRate, attackSec, releaseSec float64) (*Follower, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("envelope sample rate must be positive and finite: %f", sampleRate)
	}

	f := &Follower{
		sampleRate: sampleRate,
		attackSec:  attackSec,
		releaseSec: releaseSec,
		value:      1.0,
	}

	if err := f.SetAttack(attackSec); err != nil {
		return nil, err
	}

	if err := f.SetRelease(releaseSec); err != nil {
		return nil, err
	}

	return f, nil
}

// SetAttack sets the attack time constant in seconds.
func (f *Follower) SetAttack(seconds float64) error {
	if seconds <= 0 || !core.IsFinite(seconds) {
		return fmt.Errorf("envelope attack must be positive and finite: %f", seconds)
	}

	f.attackSec = seconds
	f.attackCoeff = TimeCoeff(f.sampleRate, seconds)

	return nil
}

// SetRelease sets the release time constant in seconds.
func (f *Follower) SetRelease(seconds float64) error {
	if seconds <= 0 || !core.IsFinite(seconds) {
		return fmt.Errorf("envelope release must be positive and finite: %f", seconds)
	}

	f.releaseSec = seconds
	f.releaseCoeff = TimeCoeff(f.sampleRate, seconds)

	return nil
}

// SetSampleRate updates the rate and rederives both coefficients.
func (f *Follower) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("envelope sample rate must be positive and finite: %f", sampleRate)
	}

	f.sampleRate = sampleRate
	f.attackCoeff = TimeCoeff(sampleRate, f.attackSec)
	f.releaseCoeff = TimeCoeff(sampleRate, f.releaseSec)

	return nil
}

// ProcessWithRelease advances the envelope toward target using an
// explicit release coefficient, as the adaptive-release path requires.
func (f *Follower) ProcessWithRelease(target, releaseCoeff float64) float64 {
	coeff := releaseCoeff
	if target < f.value {
		coeff = f.attackCoeff
	}

	f.value = target + (f.value-target)*coeff

	if f.value < MinGain {
		f.value = MinGain
	} else if f.value > 1.0 {
		f.value = 1.0
	}

	return f.value
}

// Process advances the envelope toward target with the configured
// release coefficient.
func (f *Follower) Process(target float64) float64 {
	return f.ProcessWithRelease(target, f.releaseCoeff)
}

// Value returns the current envelope gain.
func (f *Follower) Value() float64 { return f.value }

// ReleaseCoeff returns the configured release coefficient.
func (f *Follower) ReleaseCoeff() float64 { return f.releaseCoeff }

// AttackCoeff returns the configured attack coefficient.
func (f *Follower) AttackCoeff() float64 { return f.attackCoeff }

// Reset returns the envelope to unity gain.
func (f *Follower) Reset() {
	f.value = 1.0
}
