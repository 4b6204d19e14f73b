// Package delay provides the circular delay line backing the limiter's
// lookahead path.
package delay

import (
	"fmt"
	"math"
)

// Line is a circular delay line with integer-sample taps.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line of fixed size.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay size must be > 0: %d", size)
	}

	return &Line{buffer: make([]float64, size)}, nil
}

// NewForDuration returns a delay line sized to hold ms milliseconds at the
// given sample rate, with one extra slot so a same-length write/read pair
// never collides.
func NewForDuration(ms, sampleRate float64) (*Line, error) {
	if ms < 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("delay duration/rate must be non-negative/positive: %f ms at %f Hz", ms, sampleRate)
	}

	samples := int(math.Ceil(ms * sampleRate / 1000.0))

	return New(samples + 1)
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// Write writes one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample

	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read reads an integer delay in samples relative to the last written
// sample. Read(0) returns the most recent write.
func (d *Line) Read(delaySamples int) float64 {
	size := len(d.buffer)
	if size == 0 {
		return 0
	}

	readPos := (d.writePos - 1 - delaySamples) % size
	if readPos < 0 {
		readPos += size
	}

	return d.buffer[readPos]
}

// Tick writes a sample and returns the one delayed by delaySamples,
// in a single step. This is the limiter's per-sample lookahead hop.
func (d *Line) Tick(sample float64, delaySamples int) float64 {
	d.Write(sample)
	return d.Read(delaySamples)
}

// Reset clears line state.
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}

	d.writePos = 0
}
