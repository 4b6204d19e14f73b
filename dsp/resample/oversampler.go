// Package resample implements integer-factor polyphase FIR interpolation
// and decimation for true-peak oversampling. Both stages keep fixed-size
// history rings so block processing never allocates in steady state.
package resample

import "fmt"

// Interpolator upsamples by an integer factor using a polyphase FIR.
// Zero-stuffing is implicit: each input sample produces factor outputs,
// one per polyphase branch.
type Interpolator struct {
	factor  int
	phases  [][]float64
	history []float64
	pos     int
}

// NewInterpolator creates an interpolator for the given factor (>= 2).
func NewInterpolator(factor int, opts ...Option) (*Interpolator, error) {
	cfg := applyOptions(opts)

	taps, err := designPrototype(factor, cfg)
	if err != nil {
		return nil, err
	}

	// Compensate the 1/factor energy loss of zero-stuffing.
	for i := range taps {
		taps[i] *= float64(factor)
	}

	return &Interpolator{
		factor:  factor,
		phases:  splitPhases(taps, factor),
		history: make([]float64, cfg.tapsPerPhase),
	}, nil
}

// Factor returns the upsampling factor.
func (u *Interpolator) Factor() int { return u.factor }

// ProcessInto upsamples src into dst. len(dst) must equal factor*len(src).
func (u *Interpolator) ProcessInto(dst, src []float64) error {
	if len(dst) != u.factor*len(src) {
		return fmt.Errorf("resample: dst length %d != %d * src length %d", len(dst), u.factor, len(src))
	}

	histLen := len(u.history)

	for i, x := range src {
		u.history[u.pos] = x

		for p := range u.factor {
			taps := u.phases[p]

			var y float64

			idx := u.pos
			for _, c := range taps {
				y += c * u.history[idx]

				idx--
				if idx < 0 {
					idx = histLen - 1
				}
			}

			dst[i*u.factor+p] = y
		}

		u.pos++
		if u.pos >= histLen {
			u.pos = 0
		}
	}

	return nil
}

// Reset clears the history ring.
func (u *Interpolator) Reset() {
	for i := range u.history {
		u.history[i] = 0
	}

	u.pos = 0
}

// Decimator downsamples by an integer factor using an anti-aliasing FIR
// evaluated once per output sample.
type Decimator struct {
	factor  int
	taps    []float64
	history []float64
	pos     int
	count   int
}

// NewDecimator creates a decimator for the given factor (>= 2).
func NewDecimator(factor int, opts ...Option) (*Decimator, error) {
	cfg := applyOptions(opts)

	taps, err := designPrototype(factor, cfg)
	if err != nil {
		return nil, err
	}

	return &Decimator{
		factor:  factor,
		taps:    taps,
		history: make([]float64, len(taps)),
	}, nil
}

// Factor returns the downsampling factor.
func (d *Decimator) Factor() int { return d.factor }

// ProcessInto downsamples src into dst. len(src) must equal factor*len(dst).
func (d *Decimator) ProcessInto(dst, src []float64) error {
	if len(src) != d.factor*len(dst) {
		return fmt.Errorf("resample: src length %d != %d * dst length %d", len(src), d.factor, len(dst))
	}

	histLen := len(d.history)
	out := 0

	for _, x := range src {
		d.history[d.pos] = x

		d.pos++
		if d.pos >= histLen {
			d.pos = 0
		}

		d.count++
		if d.count < d.factor {
			continue
		}

		d.count = 0

		var y float64

		idx := d.pos - 1
		if idx < 0 {
			idx = histLen - 1
		}

		for _, c := range d.taps {
			y += c * d.history[idx]

			idx--
			if idx < 0 {
				idx = histLen - 1
			}
		}

		dst[out] = y
		out++
	}

	return nil
}

// Reset clears the history ring and phase counter.
func (d *Decimator) Reset() {
	for i := range d.history {
		d.history[i] = 0
	}

	d.pos = 0
	d.count = 0
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg.finalized()
}
