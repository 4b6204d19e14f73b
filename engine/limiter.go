package engine

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dynamics/dsp/core"
	"github.com/cwbudde/algo-dynamics/dsp/delay"
	"github.com/cwbudde/algo-dynamics/dsp/dither"
	"github.com/cwbudde/algo-dynamics/dsp/dynamics"
	"github.com/cwbudde/algo-dynamics/dsp/resample"
	"github.com/cwbudde/algo-dynamics/measure/loudness"
)

const (
	// limiterAttackSeconds is the fixed envelope attack; the lookahead
	// delay gives the envelope ample time to settle before a peak is
	// emitted.
	limiterAttackSeconds = 50e-6

	// adaptiveWindowSeconds sizes the peak-variance window driving the
	// adaptive release.
	adaptiveWindowSeconds = 0.05

	limiterDitherBits = 24

	maxEngineChannels = 2
)

// Limiter is a brick-wall true-peak limiter: oversampled peak detection,
// lookahead delay, a selectable gain curve and an optional adaptive
// release, with TPDF dither on the way out.
type Limiter struct {
	*engineCore

	factor       int // oversampling factor actually in use
	osRate       float64
	delaySamples int

	interp [maxEngineChannels]*resample.Interpolator
	decim  [maxEngineChannels]*resample.Decimator
	line   [maxEngineChannels]*delay.Line
	dith   [maxEngineChannels]*dither.Generator

	gainComp *dynamics.LimiterGain
	env      *dynamics.Follower
	peaks    *dynamics.PeakHistory
	adaptive *dynamics.AdaptiveRelease
	loud     *loudness.Meter

	osIn  [maxEngineChannels][]float64
	osOut [maxEngineChannels][]float64

	releaseSec    float64
	releaseCoeff  float64
	adaptiveOn    bool
	ditherOn      bool
	adaptiveRatio float64
	truePeak      float64
	minGain       float64
}

// NewLimiter creates a limiter with default parameters.
func NewLimiter(opts ...core.ProcessorOption) (*Limiter, error) {
	cfg := core.ApplyProcessorOptions(opts...)
	if cfg.Channels > maxEngineChannels {
		return nil, fmt.Errorf("limiter supports at most %d channels: %d", maxEngineChannels, cfg.Channels)
	}

	gainComp, err := dynamics.NewLimiterGain(dynamics.CurveTransparent, -0.3, -0.1, 4)
	if err != nil {
		return nil, err
	}

	l := &Limiter{
		gainComp:      gainComp,
		loud:          loudness.NewMeter(loudness.WithSampleRate(cfg.SampleRate), loudness.WithChannels(cfg.Channels)),
		adaptiveRatio: 1.0,
		minGain:       1.0,
	}

	l.engineCore = newEngineCore(cfg, limiterSchema(), l)

	l.releaseSec = l.params[ParamRelease] / 1000.0
	l.adaptiveOn = boolValue(l.params[ParamAdaptiveRelease])
	l.ditherOn = boolValue(l.params[ParamDithering])

	if err := l.rebuild(); err != nil {
		return nil, err
	}

	_ = l.gainComp.SetThreshold(l.params[ParamThreshold])
	_ = l.gainComp.SetCeiling(l.params[ParamCeiling])

	return l, nil
}

// effectiveFactor is the oversampling factor honoring the inter-sample
// peak flag: with the flag off, detection runs at the native rate.
func (l *Limiter) effectiveFactor() int {
	if !boolValue(l.params[ParamInterSamplePeak]) {
		return 1
	}

	return int(l.params[ParamOversampling])
}

// rebuild reallocates every rate-dependent buffer. Not real-time-safe;
// it runs at a quantum boundary when oversampling, lookahead or the
// inter-sample peak flag changes.
func (l *Limiter) rebuild() error {
	factor := l.effectiveFactor()
	osRate := l.cfg.SampleRate * float64(factor)
	osBlock := l.cfg.BlockSize * factor
	lookaheadMs := l.params[ParamLookahead]

	delaySamples := int(math.Ceil(lookaheadMs * osRate / 1000.0))
	if delaySamples < 1 {
		delaySamples = 1
	}

	for ch := 0; ch < l.cfg.Channels; ch++ {
		if factor > 1 {
			interp, err := resample.NewInterpolator(factor, resample.WithQuality(resample.QualityBalanced))
			if err != nil {
				return err
			}

			decim, err := resample.NewDecimator(factor, resample.WithQuality(resample.QualityBalanced))
			if err != nil {
				return err
			}

			l.interp[ch] = interp
			l.decim[ch] = decim
		} else {
			l.interp[ch] = nil
			l.decim[ch] = nil
		}

		line, err := delay.NewForDuration(lookaheadMs, osRate)
		if err != nil {
			return err
		}

		l.line[ch] = line

		gen, err := dither.NewGenerator(limiterDitherBits, dither.WithType(dither.TypeTriangular))
		if err != nil {
			return err
		}

		l.dith[ch] = gen

		l.osIn[ch] = make([]float64, osBlock)
		l.osOut[ch] = make([]float64, osBlock)
	}

	// The window covers the full lookahead plus the sample about to be
	// emitted, so the detector never underestimates the delayed peak.
	peaks, err := dynamics.NewPeakHistory(delaySamples + 1)
	if err != nil {
		return err
	}

	l.peaks = peaks

	adaptive, err := dynamics.NewAdaptiveRelease(int(adaptiveWindowSeconds*osRate) + 1)
	if err != nil {
		return err
	}

	l.adaptive = adaptive

	env, err := dynamics.NewFollower(osRate, limiterAttackSeconds, l.releaseSec)
	if err != nil {
		return err
	}

	l.env = env

	l.factor = factor
	l.osRate = osRate
	l.delaySamples = delaySamples
	l.releaseCoeff = dynamics.TimeCoeff(osRate, l.releaseSec)

	return nil
}

func (l *Limiter) applyParam(p Param, value float64) {
	switch p {
	case ParamThreshold:
		_ = l.gainComp.SetThreshold(value)
	case ParamCeiling:
		_ = l.gainComp.SetCeiling(value)
	case ParamRelease:
		l.releaseSec = value / 1000.0
		_ = l.env.SetRelease(l.releaseSec)
		l.releaseCoeff = dynamics.TimeCoeff(l.osRate, l.releaseSec)
	case ParamAlgorithm:
		_ = l.gainComp.SetCurve(dynamics.LimiterCurve(int(value)))
	case ParamOversampling, ParamLookahead, ParamInterSamplePeak:
		if err := l.rebuild(); err != nil {
			l.publishError(err.Error())
		}
	case ParamAdaptiveRelease:
		l.adaptiveOn = boolValue(value)
		if !l.adaptiveOn {
			l.adaptive.Reset()
			l.adaptiveRatio = 1.0
		}
	case ParamDithering:
		l.ditherOn = boolValue(value)
	}
}

// SetAdaptiveCurve tunes the variance-to-release mapping; the response
// is a heuristic, not a fixed contract.
func (l *Limiter) SetAdaptiveCurve(scale, maxMultiplier float64) error {
	return l.adaptive.SetCurve(scale, maxMultiplier)
}

// SetKneeWidth sets the knee width of the smooth gain curve in dB.
func (l *Limiter) SetKneeWidth(kneeDB float64) error {
	return l.gainComp.SetKneeWidth(kneeDB)
}

func (l *Limiter) resetState() {
	for ch := 0; ch < l.cfg.Channels; ch++ {
		if l.interp[ch] != nil {
			l.interp[ch].Reset()
		}

		if l.decim[ch] != nil {
			l.decim[ch].Reset()
		}

		l.line[ch].Reset()
		core.Zero(l.osIn[ch])
		core.Zero(l.osOut[ch])
	}

	l.env.Reset()
	l.peaks.Reset()
	l.adaptive.Reset()
	l.loud.Reset()
	l.adaptiveRatio = 1.0
	l.truePeak = 0
	l.minGain = 1.0
}

func (l *Limiter) fillSnapshot(s *MeteringSnapshot) {
	s.TruePeak = l.truePeak
	s.TruePeakDB = flooredDB(l.truePeak)
	s.GainReductionDB = gainReductionDB(l.minGain)
	s.Envelope = l.env.Value()
	s.LUFS = l.loud.Momentary()
	s.AdaptiveReleaseRatio = l.adaptiveRatio
}

func (l *Limiter) render(input, output [][]float64) error {
	channels := l.cfg.Channels

	for ch := 0; ch < channels; ch++ {
		if l.factor > 1 {
			if err := l.interp[ch].ProcessInto(l.osIn[ch], input[ch]); err != nil {
				return err
			}
		} else {
			core.CopyInto(l.osIn[ch], input[ch])
		}
	}

	releaseCoeff := l.releaseCoeff
	if l.adaptiveOn {
		// The multiplier is held for the quantum so one consistent
		// release coefficient applies throughout.
		l.adaptiveRatio = l.adaptive.Multiplier()
		releaseCoeff = dynamics.TimeCoeff(l.osRate, l.releaseSec*l.adaptiveRatio)
	}

	minGain := 1.0
	ceilingLin := l.gainComp.CeilingLinear()

	for n := range l.osIn[0] {
		peak := math.Abs(l.osIn[0][n])
		if channels > 1 {
			if r := math.Abs(l.osIn[1][n]); r > peak {
				peak = r
			}
		}

		l.peaks.Push(peak)

		if l.adaptiveOn {
			l.adaptive.Push(peak)
		}

		windowMax := l.peaks.Max()
		target := l.gainComp.GainForPeak(windowMax)

		g := l.env.ProcessWithRelease(target, releaseCoeff)

		// The envelope lags its target during attack; the window maximum
		// bounds the delayed sample, so this clamp keeps the output hard
		// under the ceiling even mid-attack.
		if windowMax > core.SilenceFloor {
			if limit := ceilingLin / windowMax; g > limit {
				g = limit
			}
		}

		if g < minGain {
			minGain = g
		}

		for ch := 0; ch < channels; ch++ {
			l.osOut[ch][n] = l.line[ch].Tick(l.osIn[ch][n], l.delaySamples) * g
		}
	}

	l.minGain = minGain

	// The inter-sample peak estimate comes from the oversampled buffer,
	// not the decimated output.
	truePeak := 0.0

	for ch := 0; ch < channels; ch++ {
		for _, v := range l.osOut[ch] {
			if a := math.Abs(v); a > truePeak {
				truePeak = a
			}
		}
	}

	l.truePeak = truePeak

	for ch := 0; ch < channels; ch++ {
		if l.factor > 1 {
			if err := l.decim[ch].ProcessInto(output[ch], l.osOut[ch]); err != nil {
				return err
			}
		} else {
			core.CopyInto(output[ch], l.osOut[ch])
		}

		if l.ditherOn {
			l.dith[ch].AddTo(output[ch])
		}
	}

	l.loud.ProcessPlanar(output[:channels])

	return nil
}
