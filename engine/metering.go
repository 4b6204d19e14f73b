package engine

import (
	"math"

	"github.com/cwbudde/algo-dynamics/dsp/core"
	"github.com/cwbudde/algo-vecmath"
)

// meteringFloorDB bounds the dB figures reported for silence.
const meteringFloorDB = -120.0

// MeteringSnapshot is a point-in-time copy of the engine's meters. It is
// produced on the audio thread and never mutated after construction.
type MeteringSnapshot struct {
	LeftPeak  float64
	RightPeak float64
	LeftRMS   float64
	RightRMS  float64

	LeftPeakDB  float64
	RightPeakDB float64
	LeftRMSDB   float64
	RightRMSDB  float64

	TruePeak   float64
	TruePeakDB float64

	GainReductionDB      float64
	Envelope             float64
	LUFS                 float64
	AdaptiveReleaseRatio float64
}

// PerformanceStats summarizes per-quantum processing cost.
type PerformanceStats struct {
	AvgProcessTimeMs      float64
	MaxProcessTimeMs      float64
	CPULoadPercent        float64
	ProcessedQuantumCount uint64
}

// blockMeter tracks per-channel peak and RMS over the most recent
// quantum. The scratch buffer keeps the square pass allocation-free.
type blockMeter struct {
	peak    [2]float64
	rms     [2]float64
	scratch []float64
}

func newBlockMeter(blockSize int) *blockMeter {
	return &blockMeter{scratch: make([]float64, blockSize)}
}

func (m *blockMeter) update(channels [][]float64) {
	for ch := 0; ch < 2; ch++ {
		src := channelOrLeft(channels, ch)
		if len(src) == 0 {
			m.peak[ch] = 0
			m.rms[ch] = 0

			continue
		}

		peak := 0.0
		for _, v := range src {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}

		scratch := core.EnsureLen(m.scratch, len(src))
		m.scratch = scratch
		vecmath.MulBlock(scratch, src, src)

		sum := 0.0
		for _, sq := range scratch {
			sum += sq
		}

		m.peak[ch] = peak
		m.rms[ch] = math.Sqrt(sum / float64(len(src)))
	}
}

func (m *blockMeter) reset() {
	m.peak = [2]float64{}
	m.rms = [2]float64{}
}

func (m *blockMeter) fill(s *MeteringSnapshot) {
	s.LeftPeak = m.peak[0]
	s.RightPeak = m.peak[1]
	s.LeftRMS = m.rms[0]
	s.RightRMS = m.rms[1]
	s.LeftPeakDB = flooredDB(m.peak[0])
	s.RightPeakDB = flooredDB(m.peak[1])
	s.LeftRMSDB = flooredDB(m.rms[0])
	s.RightRMSDB = flooredDB(m.rms[1])
}

// channelOrLeft returns channel ch, falling back to channel 0 so mono
// input reads as dual-mono.
func channelOrLeft(channels [][]float64, ch int) []float64 {
	if ch < len(channels) {
		return channels[ch]
	}

	if len(channels) > 0 {
		return channels[0]
	}

	return nil
}

func flooredDB(linear float64) float64 {
	db := core.LinearToDB(linear)
	if db < meteringFloorDB || math.IsInf(db, -1) {
		return meteringFloorDB
	}

	return db
}

// perfStats accumulates quantum timing. CPU load is an exponential
// moving average of elapsed time over quantum duration.
type perfStats struct {
	quantumMs float64
	totalMs   float64
	maxMs     float64
	load      float64
	count     uint64
}

const loadSmoothing = 0.1

func newPerfStats(sampleRate float64, blockSize int) *perfStats {
	return &perfStats{quantumMs: float64(blockSize) / sampleRate * 1000.0}
}

func (p *perfStats) record(elapsedMs float64) {
	p.totalMs += elapsedMs
	p.count++

	if elapsedMs > p.maxMs {
		p.maxMs = elapsedMs
	}

	instant := 0.0
	if p.quantumMs > 0 {
		instant = elapsedMs / p.quantumMs * 100.0
	}

	p.load += loadSmoothing * (instant - p.load)
}

func (p *perfStats) stats() PerformanceStats {
	avg := 0.0
	if p.count > 0 {
		avg = p.totalMs / float64(p.count)
	}

	return PerformanceStats{
		AvgProcessTimeMs:      avg,
		MaxProcessTimeMs:      p.maxMs,
		CPULoadPercent:        p.load,
		ProcessedQuantumCount: p.count,
	}
}

func (p *perfStats) reset() {
	p.totalMs = 0
	p.maxMs = 0
	p.load = 0
	p.count = 0
}
