package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-dynamics/internal/testutil"
)

// feedSine drives the limiter with a phase-continuous sine and returns
// the last output block.
func feedSine(t *testing.T, lim *Limiter, amplitude float64, quanta int, check func(q int)) [][]float64 {
	t.Helper()

	cfg := lim.Config()
	sig := testutil.DeterministicSine(997, cfg.SampleRate, amplitude, quanta*cfg.BlockSize)

	in := makeBlock(cfg.Channels, cfg.BlockSize)
	out := makeBlock(cfg.Channels, cfg.BlockSize)

	for q := 0; q < quanta; q++ {
		chunk := sig[q*cfg.BlockSize : (q+1)*cfg.BlockSize]
		for ch := range in {
			copy(in[ch], chunk)
		}

		require.True(t, lim.ProcessBlock(in, out))

		if check != nil {
			check(q)
		}
	}

	return out
}

func TestLimiterCeilingGuarantee(t *testing.T) {
	for _, algorithm := range []float64{0, 1, 2} {
		lim, err := NewLimiter()
		require.NoError(t, err)

		require.NoError(t, lim.SetParameter("algorithm", algorithm))
		require.NoError(t, lim.SetParameter("dithering", 0))

		ceiling := math.Pow(10, lim.Parameter(ParamCeiling)/20.0)

		// 1.5x full scale, roughly 3.5 dB over 0 dBFS. After the attack
		// has elapsed the oversampled output must stay under the ceiling.
		feedSine(t, lim, 1.5, 200, func(q int) {
			if q < 30 {
				return
			}

			snap := lim.Metering()
			assert.LessOrEqual(t, snap.TruePeak, ceiling*(1+1e-9),
				"algorithm %v exceeded ceiling at quantum %d", algorithm, q)
			assert.Greater(t, snap.GainReductionDB, 1.0,
				"algorithm %v should be limiting hard", algorithm)
		})
	}
}

func TestLimiterTransparentBelowThreshold(t *testing.T) {
	lim, err := NewLimiter()
	require.NoError(t, err)

	require.NoError(t, lim.SetParameter("dithering", 0))

	// -20 dB signal never reaches the threshold; the envelope stays at
	// unity and the output level matches the input level.
	out := feedSine(t, lim, 0.1, 100, nil)

	snap := lim.Metering()
	assert.Equal(t, 0.0, snap.GainReductionDB)
	assert.Equal(t, 1.0, snap.Envelope)

	assert.InDelta(t, 0.1, testutil.MaxAbs(out[0]), 0.01)
}

func TestLimiterSilenceInvariant(t *testing.T) {
	t.Run("DitherOff", func(t *testing.T) {
		lim, err := NewLimiter()
		require.NoError(t, err)

		require.NoError(t, lim.SetParameter("dithering", 0))

		cfg := lim.Config()
		in := makeBlock(cfg.Channels, cfg.BlockSize)
		out := makeBlock(cfg.Channels, cfg.BlockSize)

		for i := 0; i < 16; i++ {
			require.True(t, lim.ProcessBlock(in, out))
		}

		for ch := range out {
			assert.Equal(t, make([]float64, cfg.BlockSize), out[ch])
		}

		snap := lim.Metering()
		assert.Equal(t, 0.0, snap.GainReductionDB)
	})

	t.Run("DitherOn", func(t *testing.T) {
		lim, err := NewLimiter()
		require.NoError(t, err)

		cfg := lim.Config()
		in := makeBlock(cfg.Channels, cfg.BlockSize)
		out := makeBlock(cfg.Channels, cfg.BlockSize)

		for i := 0; i < 16; i++ {
			require.True(t, lim.ProcessBlock(in, out))
		}

		// Dither is additive regardless, but bounded by one LSB at 24
		// bits.
		lsb := math.Pow(2, -23)
		for ch := range out {
			assert.LessOrEqual(t, testutil.MaxAbs(out[ch]), lsb)
		}

		snap := lim.Metering()
		assert.Equal(t, 0.0, snap.GainReductionDB)
	})
}

func TestLimiterOversamplingVariants(t *testing.T) {
	for _, factor := range []float64{2, 4, 8} {
		lim, err := NewLimiter()
		require.NoError(t, err)

		require.NoError(t, lim.SetParameter("oversampling", factor))
		require.NoError(t, lim.SetParameter("dithering", 0))

		ceiling := math.Pow(10, lim.Parameter(ParamCeiling)/20.0)

		feedSine(t, lim, 1.5, 120, func(q int) {
			if q < 40 {
				return
			}

			snap := lim.Metering()
			assert.LessOrEqual(t, snap.TruePeak, ceiling*(1+1e-9),
				"factor %v exceeded ceiling at quantum %d", factor, q)
		})
	}
}

func TestLimiterWithoutInterSamplePeak(t *testing.T) {
	lim, err := NewLimiter()
	require.NoError(t, err)

	require.NoError(t, lim.SetParameter("interSamplePeakReduction", 0))
	require.NoError(t, lim.SetParameter("dithering", 0))

	ceiling := math.Pow(10, lim.Parameter(ParamCeiling)/20.0)

	// Native-rate limiting: sample peaks still honor the ceiling.
	out := feedSine(t, lim, 1.5, 120, nil)
	assert.LessOrEqual(t, testutil.MaxAbs(out[0]), ceiling*(1+1e-9))
}

func TestLimiterAdaptiveReleaseRatio(t *testing.T) {
	lim, err := NewLimiter()
	require.NoError(t, err)

	feedSine(t, lim, 1.5, 100, func(q int) {
		snap := lim.Metering()
		assert.GreaterOrEqual(t, snap.AdaptiveReleaseRatio, 1.0)
		assert.LessOrEqual(t, snap.AdaptiveReleaseRatio, 3.0)
	})

	require.NoError(t, lim.SetParameter("adaptiveRelease", 0))

	cfg := lim.Config()
	in := makeBlock(cfg.Channels, cfg.BlockSize)
	out := makeBlock(cfg.Channels, cfg.BlockSize)
	require.True(t, lim.ProcessBlock(in, out))

	assert.Equal(t, 1.0, lim.Metering().AdaptiveReleaseRatio)
}

func TestLimiterLoudnessMetering(t *testing.T) {
	lim, err := NewLimiter()
	require.NoError(t, err)

	// Half a second of signal fills the momentary window.
	feedSine(t, lim, 0.5, 200, nil)

	snap := lim.Metering()
	assert.Greater(t, snap.LUFS, -20.0)
	assert.Less(t, snap.LUFS, 0.0)
}

func TestLimiterResetIdempotent(t *testing.T) {
	lim, err := NewLimiter()
	require.NoError(t, err)

	feedSine(t, lim, 1.5, 50, nil)

	lim.Reset()
	once := lim.Metering()

	lim.Reset()
	twice := lim.Metering()

	assert.Equal(t, once, twice)
	assert.Equal(t, 1.0, once.Envelope)
	assert.Equal(t, 0.0, once.GainReductionDB)
	assert.Equal(t, 0.0, once.TruePeak)
	assert.Equal(t, 1.0, once.AdaptiveReleaseRatio)
}

func TestLimiterAdaptiveCurveValidation(t *testing.T) {
	lim, err := NewLimiter()
	require.NoError(t, err)

	assert.Error(t, lim.SetAdaptiveCurve(0, 3))
	assert.NoError(t, lim.SetAdaptiveCurve(50, 2))
	assert.Error(t, lim.SetKneeWidth(-1))
	assert.NoError(t, lim.SetKneeWidth(3))
}
