package dynamics

import "fmt"

// PeakHistory tracks the maximum absolute level over a sliding window of
// samples. It keeps a monotonically decreasing deque of candidate maxima
// indexed by sample count, so Push and Max are amortized O(1) regardless
// of window length.
type PeakHistory struct {
	windowSamples int
	sampleIndex   int

	// indices and values form a deque of window positions whose values
	// are strictly decreasing; head and tail index into the backing
	// slices modulo their length.
	indices []int
	values  []float64
	head    int
	tail    int
	count   int
}

// NewPeakHistory creates a sliding-maximum tracker over the given window
// length in samples.
func NewPeakHistory(windowSamples int) (*PeakHistory, error) {
	if windowSamples <= 0 {
		return nil, fmt.Errorf("peak history window must be positive: %d", windowSamples)
	}

	return &PeakHistory{
		windowSamples: windowSamples,
		indices:       make([]int, windowSamples),
		values:        make([]float64, windowSamples),
	}, nil
}

// Push records the next sample's absolute level.
func (p *PeakHistory) Push(level float64) {
	// Expire candidates that slid out of the window.
	for p.count > 0 && p.indices[p.head] <= p.sampleIndex-p.windowSamples {
		p.head++
		if p.head >= len(p.indices) {
			p.head = 0
		}

		p.count--
	}

	// Drop candidates dominated by the new sample.
	for p.count > 0 {
		last := p.tail - 1
		if last < 0 {
			last = len(p.values) - 1
		}

		if p.values[last] > level {
			break
		}

		p.tail = last
		p.count--
	}

	p.indices[p.tail] = p.sampleIndex
	p.values[p.tail] = level

	p.tail++
	if p.tail >= len(p.indices) {
		p.tail = 0
	}

	p.count++
	p.sampleIndex++
}

// Max returns the maximum level over the current window, or 0 before any
// sample was pushed.
func (p *PeakHistory) Max() float64 {
	if p.count == 0 {
		return 0
	}

	return p.values[p.head]
}

// Window returns the window length in samples.
func (p *PeakHistory) Window() int { return p.windowSamples }

// Reset clears the history.
func (p *PeakHistory) Reset() {
	p.head = 0
	p.tail = 0
	p.count = 0
	p.sampleIndex = 0
}
