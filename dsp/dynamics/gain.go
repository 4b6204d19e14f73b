package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-dynamics/dsp/core"
)

const (
	// log2Of10Div20 converts dB values to the log2 domain: log2(10) / 20.
	log2Of10Div20 = 0.166096404744

	minRatio = 1.0
	maxRatio = 1000.0
	minKneeDB = 0.0
	maxKneeDB = 24.0

	// transparentRatio is the effective ratio of the limiter's
	// "transparent" and "smooth" curves: high enough to act as a brick
	// wall, finite so the transition stays differentiable.
	transparentRatio = 1000.0
)

// SoftKnee computes compression gain with a quadratic soft knee in the
// log2 domain. It is stateless apart from cached coefficients; the caller
// smooths the returned gain with a [Follower].
type SoftKnee struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64

	thresholdLog2    float64
	kneeWidthLog2    float64
	invKneeWidthLog2 float64
}

// NewSoftKnee creates a soft-knee gain computer.
func NewSoftKnee(thresholdDB, ratio, kneeDB float64) (*SoftKnee, error) {
	k := &SoftKnee{}

	if err := k.SetThreshold(thresholdDB); err != nil {
		return nil, err
	}

	if err := k.SetRatio(ratio); err != nil {
		return nil, err
	}

	if err := k.SetKnee(kneeDB); err != nil {
		return nil, err
	}

	return k, nil
}

// SetThreshold sets the compression threshold in dB.
func (k *SoftKnee) SetThreshold(dB float64) error {
	if !core.IsFinite(dB) {
		return fmt.Errorf("knee threshold must be finite: %f", dB)
	}

	k.thresholdDB = dB
	k.thresholdLog2 = dB * log2Of10Div20

	return nil
}

// SetRatio sets the compression ratio.
func (k *SoftKnee) SetRatio(ratio float64) error {
	if ratio < minRatio || ratio > maxRatio || !core.IsFinite(ratio) {
		return fmt.Errorf("knee ratio must be in [%f, %f]: %f", minRatio, maxRatio, ratio)
	}

	k.ratio = ratio

	return nil
}

// SetKnee sets the knee width in dB. Zero selects a hard knee.
func (k *SoftKnee) SetKnee(kneeDB float64) error {
	if kneeDB < minKneeDB || kneeDB > maxKneeDB || !core.IsFinite(kneeDB) {
		return fmt.Errorf("knee width must be in [%f, %f]: %f", minKneeDB, maxKneeDB, kneeDB)
	}

	k.kneeDB = kneeDB

	k.kneeWidthLog2 = kneeDB * log2Of10Div20
	if kneeDB > 0 {
		k.invKneeWidthLog2 = 1.0 / k.kneeWidthLog2
	} else {
		k.invKneeWidthLog2 = 0
	}

	return nil
}

// Threshold returns the threshold in dB.
func (k *SoftKnee) Threshold() float64 { return k.thresholdDB }

// Ratio returns the compression ratio.
func (k *SoftKnee) Ratio() float64 { return k.ratio }

// Knee returns the knee width in dB.
func (k *SoftKnee) Knee() float64 { return k.kneeDB }

// GainForLevel maps an instantaneous detector level (linear) to a target
// gain in [MinGain, 1]. Inside the knee the overshoot is blended with a
// quadratic so the curve is continuous at both knee edges.
func (k *SoftKnee) GainForLevel(level float64) float64 {
	if level <= core.SilenceFloor {
		return 1.0
	}

	levelLog2 := mathLog2(level)
	overshoot := levelLog2 - k.thresholdLog2
	compressionFactor := 1.0 - 1.0/k.ratio

	if k.kneeDB <= 0 {
		if overshoot <= 0 {
			return 1.0
		}

		return flooredGain(mathPower2(-overshoot * compressionFactor))
	}

	halfWidth := k.kneeWidthLog2 * 0.5

	var effectiveOvershoot float64

	switch {
	case overshoot < -halfWidth:
		return 1.0
	case overshoot > halfWidth:
		effectiveOvershoot = overshoot
	default:
		scratch := overshoot + halfWidth
		effectiveOvershoot = scratch * scratch * 0.5 * k.invKneeWidthLog2
	}

	return flooredGain(mathPower2(-effectiveOvershoot * compressionFactor))
}

// LimiterCurve selects the limiter's gain-computation characteristic.
type LimiterCurve int

const (
	// CurveTransparent applies a very high fixed ratio above threshold
	// with a hard safety clamp at the ceiling.
	CurveTransparent LimiterCurve = iota
	// CurveAggressive clamps straight to ceiling/peak above the ceiling.
	CurveAggressive
	// CurveSmooth blends a quadratic knee around the threshold before
	// the ceiling clamp.
	CurveSmooth

	curveCount // sentinel for validation
)

var curveNames = [curveCount]string{"transparent", "aggressive", "smooth"}

// String returns the curve name as used in the parameter schema.
func (c LimiterCurve) String() string {
	if c >= 0 && c < curveCount {
		return curveNames[c]
	}

	return fmt.Sprintf("LimiterCurve(%d)", c)
}

// Valid reports whether c names a known curve.
func (c LimiterCurve) Valid() bool {
	return c >= 0 && c < curveCount
}

// ParseCurve resolves a schema string to a curve.
func ParseCurve(name string) (LimiterCurve, error) {
	for i, n := range curveNames {
		if n == name {
			return LimiterCurve(i), nil
		}
	}

	return 0, fmt.Errorf("unknown limiter curve: %q", name)
}

// LimiterGain computes the target gain driving the limiter envelope.
// Every curve guarantees peak * gain <= ceiling once peak exceeds the
// threshold.
type LimiterGain struct {
	curve        LimiterCurve
	thresholdDB  float64
	ceilingDB    float64
	kneeDB       float64
	thresholdLin float64
	ceilingLin   float64
	knee         *SoftKnee
}

// NewLimiterGain creates a limiter gain computer.
func NewLimiterGain(curve LimiterCurve, thresholdDB, ceilingDB, kneeDB float64) (*LimiterGain, error) {
	if !curve.Valid() {
		return nil, fmt.Errorf("invalid limiter curve: %d", curve)
	}

	knee, err := NewSoftKnee(thresholdDB, transparentRatio, kneeDB)
	if err != nil {
		return nil, err
	}

	g := &LimiterGain{curve: curve, kneeDB: kneeDB, knee: knee}

	if err := g.SetThreshold(thresholdDB); err != nil {
		return nil, err
	}

	if err := g.SetCeiling(ceilingDB); err != nil {
		return nil, err
	}

	return g, nil
}

// SetCurve switches the gain characteristic.
func (g *LimiterGain) SetCurve(curve LimiterCurve) error {
	if !curve.Valid() {
		return fmt.Errorf("invalid limiter curve: %d", curve)
	}

	g.curve = curve

	return nil
}

// SetThreshold sets the limiting threshold in dB.
func (g *LimiterGain) SetThreshold(dB float64) error {
	if !core.IsFinite(dB) {
		return fmt.Errorf("limiter threshold must be finite: %f", dB)
	}

	g.thresholdDB = dB
	g.thresholdLin = mathPower10(dB / 20.0)

	return g.knee.SetThreshold(dB)
}

// SetCeiling sets the output ceiling in dB.
func (g *LimiterGain) SetCeiling(dB float64) error {
	if !core.IsFinite(dB) {
		return fmt.Errorf("limiter ceiling must be finite: %f", dB)
	}

	g.ceilingDB = dB
	g.ceilingLin = mathPower10(dB / 20.0)

	return nil
}

// SetKneeWidth sets the smooth-curve knee width in dB.
func (g *LimiterGain) SetKneeWidth(kneeDB float64) error {
	if err := g.knee.SetKnee(kneeDB); err != nil {
		return err
	}

	g.kneeDB = kneeDB

	return nil
}

// Curve returns the active curve.
func (g *LimiterGain) Curve() LimiterCurve { return g.curve }

// CeilingLinear returns the linear ceiling level.
func (g *LimiterGain) CeilingLinear() float64 { return g.ceilingLin }

// ThresholdLinear returns the linear threshold level.
func (g *LimiterGain) ThresholdLinear() float64 { return g.thresholdLin }

// GainForPeak maps a detector peak (linear, max over the peak-history
// window) to a target gain in [MinGain, 1].
func (g *LimiterGain) GainForPeak(peak float64) float64 {
	if peak <= core.SilenceFloor {
		return 1.0
	}

	var gain float64

	switch g.curve {
	case CurveAggressive:
		gain = 1.0
		if peak > g.ceilingLin {
			gain = g.ceilingLin / peak
		}

	case CurveSmooth:
		gain = g.knee.GainForLevel(peak)

	default: // CurveTransparent
		gain = 1.0
		if peak > g.thresholdLin {
			overshoot := mathLog2(peak) - g.thresholdDB*log2Of10Div20
			gain = mathPower2(-overshoot * (1.0 - 1.0/transparentRatio))
		}
	}

	// Brick-wall guarantee regardless of curve.
	if peak*gain > g.ceilingLin {
		gain = g.ceilingLin / peak
	}

	return flooredGain(gain)
}

func flooredGain(gain float64) float64 {
	if gain < MinGain {
		return MinGain
	}

	if gain > 1.0 {
		return 1.0
	}

	return gain
}
