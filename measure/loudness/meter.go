package loudness

import (
	"math"

	"github.com/cwbudde/algo-dynamics/dsp/filter/weighting"
)

const (
	// Integration window durations in seconds per BS.1770.
	momentaryDuration = 0.4
	shortTermDuration = 3.0

	// Gating parameters for integrated loudness.
	absThreshold    = -70.0
	relThreshold    = -10.0
	blockOverlap    = 0.75
	blockStepFactor = 1.0 - blockOverlap

	// Floor returned for silence instead of -Inf.
	lufsFloor = -120.0
)

// Meter implements EBU R128 / ITU-R BS.1770 loudness metering with
// sliding momentary and short-term windows. The window energies are kept
// as running sums and rescanned once per window length so rounding error
// cannot drift.
type Meter struct {
	sampleRate float64
	channels   int

	weights []*weighting.K

	momWindowSamples   int
	shortWindowSamples int
	momHistory         [][]float64 // squared K-weighted samples
	shortHistory       [][]float64
	momWriteIdx        int
	shortWriteIdx      int

	momSums   []float64
	shortSums []float64

	momResync   int
	shortResync int

	// Integrated loudness state.
	integrationRunning bool
	blockStepSamples   int
	samplesSinceStep   int
	blocks             []float64 // gating block powers (sum over channels)

	samplePeak []float64
	frame      []float64 // scratch for planar processing
}

// NewMeter creates a loudness meter with the given options.
func NewMeter(opts ...MeterOption) *Meter {
	cfg := ApplyMeterOptions(opts...)

	meter := &Meter{
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
	}

	meter.reconfigure()

	return meter
}

func (m *Meter) reconfigure() {
	m.weights = make([]*weighting.K, m.channels)
	for i := range m.channels {
		m.weights[i] = weighting.NewK(m.sampleRate)
	}

	m.momWindowSamples = int(math.Round(momentaryDuration * m.sampleRate))
	m.shortWindowSamples = int(math.Round(shortTermDuration * m.sampleRate))

	m.momHistory = make([][]float64, m.channels)
	m.shortHistory = make([][]float64, m.channels)

	for i := range m.channels {
		m.momHistory[i] = make([]float64, m.momWindowSamples)
		m.shortHistory[i] = make([]float64, m.shortWindowSamples)
	}

	m.momSums = make([]float64, m.channels)
	m.shortSums = make([]float64, m.channels)
	m.samplePeak = make([]float64, m.channels)
	m.frame = make([]float64, m.channels)

	m.blockStepSamples = max(int(math.Round(momentaryDuration*blockStepFactor*m.sampleRate)), 1)

	m.Reset()
}

// Reset clears filter state, window history and peak values.
func (m *Meter) Reset() {
	for i := range m.channels {
		m.weights[i].Reset()

		for j := range m.momHistory[i] {
			m.momHistory[i][j] = 0
		}

		for j := range m.shortHistory[i] {
			m.shortHistory[i][j] = 0
		}

		m.momSums[i] = 0
		m.shortSums[i] = 0
		m.samplePeak[i] = 0
	}

	m.momWriteIdx = 0
	m.shortWriteIdx = 0
	m.momResync = m.momWindowSamples
	m.shortResync = m.shortWindowSamples
	m.samplesSinceStep = 0
	m.blocks = nil
}

// StartIntegration starts accumulating gating blocks for integrated
// loudness.
func (m *Meter) StartIntegration() {
	m.integrationRunning = true
}

// StopIntegration stops accumulating gating blocks.
func (m *Meter) StopIntegration() {
	m.integrationRunning = false
}

// ProcessFrame processes one multi-channel frame.
func (m *Meter) ProcessFrame(frame []float64) {
	if len(frame) < m.channels {
		return
	}

	for i := range m.channels {
		weighted := m.weights[i].ProcessSample(frame[i])

		absVal := math.Abs(frame[i])
		if absVal > m.samplePeak[i] {
			m.samplePeak[i] = absVal
		}

		sq := weighted * weighted

		m.momSums[i] += sq - m.momHistory[i][m.momWriteIdx]
		m.momHistory[i][m.momWriteIdx] = sq

		m.shortSums[i] += sq - m.shortHistory[i][m.shortWriteIdx]
		m.shortHistory[i][m.shortWriteIdx] = sq
	}

	m.momWriteIdx++
	if m.momWriteIdx >= m.momWindowSamples {
		m.momWriteIdx = 0
	}

	m.shortWriteIdx++
	if m.shortWriteIdx >= m.shortWindowSamples {
		m.shortWriteIdx = 0
	}

	m.momResync--
	if m.momResync <= 0 {
		for i := range m.channels {
			m.momSums[i] = sumSquares(m.momHistory[i])
		}

		m.momResync = m.momWindowSamples
	}

	m.shortResync--
	if m.shortResync <= 0 {
		for i := range m.channels {
			m.shortSums[i] = sumSquares(m.shortHistory[i])
		}

		m.shortResync = m.shortWindowSamples
	}

	if m.integrationRunning {
		m.samplesSinceStep++
		if m.samplesSinceStep >= m.blockStepSamples {
			m.samplesSinceStep = 0

			// z_ij per BS.1770-4: mean square of the K-filtered signal
			// over the last 400 ms, summed over channels.
			meanSqSum := 0.0
			for i := range m.channels {
				meanSqSum += m.momSums[i] / float64(m.momWindowSamples)
			}

			m.blocks = append(m.blocks, meanSqSum)
		}
	}
}

// ProcessBlock processes a block of interleaved samples.
func (m *Meter) ProcessBlock(block []float64) {
	for i := 0; i+m.channels <= len(block); i += m.channels {
		m.ProcessFrame(block[i : i+m.channels])
	}
}

// ProcessPlanar processes one planar block, one slice per channel. All
// channel slices must have the same length.
func (m *Meter) ProcessPlanar(channels [][]float64) {
	if len(channels) < m.channels || len(channels[0]) == 0 {
		return
	}

	for n := range channels[0] {
		for i := range m.channels {
			m.frame[i] = channels[i][n]
		}

		m.ProcessFrame(m.frame)
	}
}

// Momentary returns the current momentary loudness (400 ms) in LUFS.
func (m *Meter) Momentary() float64 {
	meanSqSum := 0.0
	for i := range m.channels {
		meanSqSum += m.momSums[i] / float64(m.momWindowSamples)
	}

	return toLUFS(meanSqSum)
}

// ShortTerm returns the current short-term loudness (3 s) in LUFS.
func (m *Meter) ShortTerm() float64 {
	meanSqSum := 0.0
	for i := range m.channels {
		meanSqSum += m.shortSums[i] / float64(m.shortWindowSamples)
	}

	return toLUFS(meanSqSum)
}

// Integrated returns the gated integrated loudness in LUFS since
// StartIntegration.
func (m *Meter) Integrated() float64 {
	if len(m.blocks) == 0 {
		return lufsFloor
	}

	// Absolute gate at -70 LUFS.
	var absGated []float64

	absGatedSum := 0.0

	for _, b := range m.blocks {
		if toLUFS(b) > absThreshold {
			absGated = append(absGated, b)
			absGatedSum += b
		}
	}

	if len(absGated) == 0 {
		return lufsFloor
	}

	// Relative gate 10 LU below the absolute-gated mean.
	gammaRel := toLUFS(absGatedSum/float64(len(absGated))) + relThreshold

	var (
		relGatedSum   float64
		relGatedCount int
	)

	for _, b := range absGated {
		if toLUFS(b) > gammaRel {
			relGatedSum += b
			relGatedCount++
		}
	}

	if relGatedCount == 0 {
		return lufsFloor
	}

	return toLUFS(relGatedSum / float64(relGatedCount))
}

// Peaks returns the maximum absolute sample peak per channel since Reset.
func (m *Meter) Peaks() []float64 {
	p := make([]float64, m.channels)
	copy(p, m.samplePeak)

	return p
}

// Channels returns the configured channel count.
func (m *Meter) Channels() int { return m.channels }

func sumSquares(window []float64) float64 {
	sum := 0.0
	for _, v := range window {
		sum += v
	}

	return sum
}

func toLUFS(meanSquare float64) float64 {
	if meanSquare <= 0 {
		return lufsFloor
	}

	lufs := -0.691 + 10.0*math.Log10(meanSquare)
	if lufs < lufsFloor {
		return lufsFloor
	}

	return lufs
}
