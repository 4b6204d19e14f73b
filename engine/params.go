package engine

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dynamics/dsp/core"
)

// Param identifies one entry of an engine's parameter schema. The set is
// closed so setters can be checked exhaustively instead of dispatching on
// arbitrary strings.
type Param int

const (
	ParamThreshold Param = iota
	ParamRatio
	ParamAttack
	ParamRelease
	ParamMakeupGain
	ParamCeiling
	ParamAlgorithm
	ParamOversampling
	ParamLookahead
	ParamAdaptiveRelease
	ParamInterSamplePeak
	ParamDithering

	paramCount // sentinel for validation
)

var paramNames = [paramCount]string{
	"threshold",
	"ratio",
	"attack",
	"release",
	"makeupGain",
	"ceiling",
	"algorithm",
	"oversampling",
	"lookahead",
	"adaptiveRelease",
	"interSamplePeakReduction",
	"dithering",
}

// String returns the schema name of the parameter.
func (p Param) String() string {
	if p >= 0 && p < paramCount {
		return paramNames[p]
	}

	return fmt.Sprintf("Param(%d)", int(p))
}

// ParseParam resolves a schema name to a Param.
func ParseParam(name string) (Param, error) {
	for i, n := range paramNames {
		if n == name {
			return Param(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
}

// paramSpec describes the valid range and default of one parameter.
// Discrete parameters snap to the nearest allowed value instead of
// clamping continuously.
type paramSpec struct {
	min, max float64
	def      float64
	discrete []float64
}

func (s paramSpec) constrain(value float64) float64 {
	if math.IsNaN(value) {
		return s.def
	}

	if len(s.discrete) > 0 {
		best := s.discrete[0]
		bestDist := math.Abs(value - best)

		for _, d := range s.discrete[1:] {
			if dist := math.Abs(value - d); dist < bestDist {
				best = d
				bestDist = dist
			}
		}

		return best
	}

	return core.Clamp(value, s.min, s.max)
}

// Schema maps an engine's parameters to their ranges and defaults.
type Schema map[Param]paramSpec

// Defaults returns a fresh parameter set holding the schema defaults.
func (s Schema) Defaults() map[Param]float64 {
	params := make(map[Param]float64, len(s))
	for p, spec := range s {
		params[p] = spec.def
	}

	return params
}

// Constrain clamps value to the parameter's documented range, snapping
// discrete parameters to the nearest allowed value. Unknown parameters
// are rejected.
func (s Schema) Constrain(p Param, value float64) (float64, error) {
	spec, ok := s[p]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, p.String())
	}

	return spec.constrain(value), nil
}

// ParamInfo is the exported description of one schema entry.
type ParamInfo struct {
	Name     string
	Min      float64
	Max      float64
	Default  float64
	Discrete []float64
}

// Describe lists the schema entries in declaration order.
func (s Schema) Describe() []ParamInfo {
	infos := make([]ParamInfo, 0, len(s))

	for p := Param(0); p < paramCount; p++ {
		spec, ok := s[p]
		if !ok {
			continue
		}

		infos = append(infos, ParamInfo{
			Name:     p.String(),
			Min:      spec.min,
			Max:      spec.max,
			Default:  spec.def,
			Discrete: spec.discrete,
		})
	}

	return infos
}

// CompressorSchema returns the bus compressor's parameter schema.
func CompressorSchema() Schema { return compressorSchema() }

// LimiterSchema returns the true-peak limiter's parameter schema.
func LimiterSchema() Schema { return limiterSchema() }

// boolValue interprets a numeric parameter as a flag.
func boolValue(v float64) bool { return v >= 0.5 }

func compressorSchema() Schema {
	return Schema{
		ParamThreshold:  {min: -60, max: 0, def: -10},
		ParamRatio:      {min: 1, max: 20, def: 4},
		ParamAttack:     {min: 0.1, max: 100, def: 10},
		ParamRelease:    {min: 10, max: 1000, def: 100},
		ParamMakeupGain: {min: 0, max: 20, def: 0},
	}
}

func limiterSchema() Schema {
	return Schema{
		ParamThreshold:       {min: -24, max: 0, def: -0.3},
		ParamCeiling:         {min: -24, max: 0, def: -0.1},
		ParamRelease:         {min: 1, max: 1000, def: 50},
		ParamAlgorithm:       {min: 0, max: 2, def: 0, discrete: []float64{0, 1, 2}},
		ParamOversampling:    {min: 2, max: 8, def: 4, discrete: []float64{2, 4, 8}},
		ParamLookahead:       {min: 0.1, max: 10, def: 2},
		ParamAdaptiveRelease: {min: 0, max: 1, def: 1, discrete: []float64{0, 1}},
		ParamInterSamplePeak: {min: 0, max: 1, def: 1, discrete: []float64{0, 1}},
		ParamDithering:       {min: 0, max: 1, def: 1, discrete: []float64{0, 1}},
	}
}
