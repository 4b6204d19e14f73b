package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-dynamics/internal/testutil"
)

func steadyBlock(channels, size int, amplitude float64) [][]float64 {
	block := make([][]float64, channels)
	for ch := range block {
		block[ch] = testutil.SteadyLevel(amplitude, size)
	}

	return block
}

func TestCompressorSteadyToneGainReduction(t *testing.T) {
	comp, err := NewCompressor()
	require.NoError(t, err)

	require.NoError(t, comp.SetParameters(map[string]float64{
		"threshold": -10,
		"ratio":     4,
		"attack":    10,
		"release":   100,
	}))

	cfg := comp.Config()

	// Steady -4 dB tone: 6 dB over threshold at ratio 4 settles to
	// 6 * (1 - 1/4) = 4.5 dB of gain reduction.
	in := steadyBlock(cfg.Channels, cfg.BlockSize, math.Pow(10, -4.0/20.0))
	out := makeBlock(cfg.Channels, cfg.BlockSize)

	for i := 0; i < 400; i++ {
		require.True(t, comp.ProcessBlock(in, out))
	}

	snap := comp.Metering()
	assert.InDelta(t, 4.5, snap.GainReductionDB, 0.1)
}

func TestCompressorBelowThresholdIsTransparent(t *testing.T) {
	comp, err := NewCompressor()
	require.NoError(t, err)

	cfg := comp.Config()
	in := steadyBlock(cfg.Channels, cfg.BlockSize, 0.05) // -26 dB
	out := makeBlock(cfg.Channels, cfg.BlockSize)

	for i := 0; i < 50; i++ {
		require.True(t, comp.ProcessBlock(in, out))
	}

	for ch := range out {
		diff, err := testutil.MaxAbsDiff(in[ch], out[ch])
		require.NoError(t, err)
		assert.Less(t, diff, 1e-9, "sub-threshold signal must pass unchanged")
	}

	snap := comp.Metering()
	assert.InDelta(t, 0.0, snap.GainReductionDB, 1e-6)
}

func TestCompressorMakeupGain(t *testing.T) {
	comp, err := NewCompressor()
	require.NoError(t, err)

	require.NoError(t, comp.SetParameter("makeupGain", 6))

	cfg := comp.Config()
	amplitude := 0.05 // well below threshold, so only makeup acts
	in := steadyBlock(cfg.Channels, cfg.BlockSize, amplitude)
	out := makeBlock(cfg.Channels, cfg.BlockSize)

	require.True(t, comp.ProcessBlock(in, out))

	want := amplitude * math.Pow(10, 6.0/20.0)
	assert.InDelta(t, want, math.Abs(out[0][cfg.BlockSize-1]), 1e-9)
}

func TestCompressorSilenceInvariant(t *testing.T) {
	comp, err := NewCompressor()
	require.NoError(t, err)

	cfg := comp.Config()
	in := makeBlock(cfg.Channels, cfg.BlockSize)
	out := makeBlock(cfg.Channels, cfg.BlockSize)

	for i := 0; i < 8; i++ {
		require.True(t, comp.ProcessBlock(in, out))
	}

	for ch := range out {
		assert.Equal(t, make([]float64, cfg.BlockSize), out[ch])
	}

	snap := comp.Metering()
	assert.Equal(t, 0.0, snap.GainReductionDB)
	assert.Equal(t, 1.0, snap.Envelope)
}

func TestCompressorStereoLink(t *testing.T) {
	comp, err := NewCompressor()
	require.NoError(t, err)

	cfg := comp.Config()

	// Hot left channel, quiet right channel: the shared gain trajectory
	// must attenuate both by the same factor.
	in := makeBlock(cfg.Channels, cfg.BlockSize)
	copy(in[0], testutil.SteadyLevel(0.9, cfg.BlockSize))
	copy(in[1], testutil.SteadyLevel(0.05, cfg.BlockSize))

	out := makeBlock(cfg.Channels, cfg.BlockSize)

	for i := 0; i < 200; i++ {
		require.True(t, comp.ProcessBlock(in, out))
	}

	leftRatio := math.Abs(out[0][cfg.BlockSize-1]) / 0.9
	rightRatio := math.Abs(out[1][cfg.BlockSize-1]) / 0.05

	assert.InDelta(t, leftRatio, rightRatio, 1e-9)
	assert.Less(t, leftRatio, 1.0)
}

func TestCompressorResetIdempotent(t *testing.T) {
	comp, err := NewCompressor()
	require.NoError(t, err)

	cfg := comp.Config()
	in := steadyBlock(cfg.Channels, cfg.BlockSize, 0.9)
	out := makeBlock(cfg.Channels, cfg.BlockSize)

	for i := 0; i < 20; i++ {
		require.True(t, comp.ProcessBlock(in, out))
	}

	comp.Reset()
	once := comp.Metering()

	comp.Reset()
	twice := comp.Metering()

	assert.Equal(t, once, twice)
	assert.Equal(t, 1.0, once.Envelope)
	assert.Equal(t, 0.0, once.GainReductionDB)
	assert.Equal(t, uint64(0), comp.Performance().ProcessedQuantumCount)
}
