package engine

import (
	"math"

	"github.com/cwbudde/algo-dynamics/dsp/core"
	"github.com/cwbudde/algo-dynamics/dsp/dynamics"
	"github.com/cwbudde/algo-vecmath"
)

// compressorKneeDB is the fixed soft-knee width of the bus compressor.
const compressorKneeDB = 2.0

// Compressor is a stereo-linked bus compressor with a soft-knee gain
// computer and an asymmetric attack/release envelope.
type Compressor struct {
	*engineCore

	knee    *dynamics.SoftKnee
	env     *dynamics.Follower
	makeup  float64
	gains   []float64
	minGain float64 // lowest envelope gain of the last quantum
}

// NewCompressor creates a compressor with default parameters.
func NewCompressor(opts ...core.ProcessorOption) (*Compressor, error) {
	cfg := core.ApplyProcessorOptions(opts...)

	knee, err := dynamics.NewSoftKnee(-10, 4, compressorKneeDB)
	if err != nil {
		return nil, err
	}

	env, err := dynamics.NewFollower(cfg.SampleRate, 0.010, 0.100)
	if err != nil {
		return nil, err
	}

	c := &Compressor{
		knee:    knee,
		env:     env,
		makeup:  1.0,
		gains:   make([]float64, cfg.BlockSize),
		minGain: 1.0,
	}

	c.engineCore = newEngineCore(cfg, compressorSchema(), c)

	// Push the schema defaults through applyParam so derived state is
	// consistent from the start.
	for p, v := range c.params {
		c.applyParam(p, v)
	}

	return c, nil
}

func (c *Compressor) applyParam(p Param, value float64) {
	switch p {
	case ParamThreshold:
		_ = c.knee.SetThreshold(value)
	case ParamRatio:
		_ = c.knee.SetRatio(value)
	case ParamAttack:
		_ = c.env.SetAttack(value / 1000.0)
	case ParamRelease:
		_ = c.env.SetRelease(value / 1000.0)
	case ParamMakeupGain:
		c.makeup = core.DBToLinear(value)
	}
}

func (c *Compressor) resetState() {
	c.env.Reset()
	c.minGain = 1.0
}

func (c *Compressor) fillSnapshot(s *MeteringSnapshot) {
	s.Envelope = c.env.Value()
	s.GainReductionDB = gainReductionDB(c.minGain)
}

// render compresses one quantum with stereo-linked peak detection: the
// louder channel drives a single gain trajectory applied to both.
func (c *Compressor) render(input, output [][]float64) error {
	left := input[0]
	right := channelOrLeft(input, 1)

	minGain := 1.0

	for n := range left {
		peak := math.Abs(left[n])
		if r := math.Abs(right[n]); r > peak {
			peak = r
		}

		g := c.env.Process(c.knee.GainForLevel(peak))
		c.gains[n] = g * c.makeup

		if g < minGain {
			minGain = g
		}
	}

	c.minGain = minGain

	for ch := 0; ch < c.cfg.Channels; ch++ {
		vecmath.MulBlock(output[ch], input[ch], c.gains)
	}

	return nil
}

// gainReductionDB converts the lowest envelope gain to a positive dB
// reduction figure.
func gainReductionDB(gain float64) float64 {
	if gain >= 1.0 {
		return 0
	}

	return -core.LinearToDB(gain)
}
