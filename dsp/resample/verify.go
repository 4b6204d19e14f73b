package resample

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// Measurement captures the realized frequency-domain quality of a designed
// anti-aliasing prototype.
type Measurement struct {
	StopbandDB       float64 // worst-case attenuation beyond the transition band
	PassbandRippleDB float64 // max deviation from 0 dB inside the passband
}

// Prototype designs and returns the anti-aliasing FIR taps for a factor,
// normalized to unity DC gain.
func Prototype(factor int, opts ...Option) ([]float64, error) {
	return designPrototype(factor, applyOptions(opts))
}

// MeasureFilter designs the prototype for a factor and measures its
// realized stopband attenuation and passband ripple via FFT.
func MeasureFilter(factor int, opts ...Option) (Measurement, error) {
	cfg := applyOptions(opts)

	taps, err := designPrototype(factor, cfg)
	if err != nil {
		return Measurement{}, err
	}

	fc := (0.5 / float64(factor)) * cfg.cutoffScale
	passEdge := fc * 0.80
	stopEdge := (0.5 / float64(factor)) * (2 - cfg.cutoffScale)

	return measureResponse(taps, passEdge, stopEdge)
}

// measureResponse evaluates |H(f)| on an FFT grid and reduces it to the
// passband/stopband figures of merit.
func measureResponse(taps []float64, passEdge, stopEdge float64) (Measurement, error) {
	fftSize := 8 * nextPow2(len(taps))
	if fftSize < 1024 {
		fftSize = 1024
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return Measurement{}, fmt.Errorf("resample: response plan: %w", err)
	}

	in := make([]complex128, fftSize)
	for i, v := range taps {
		in[i] = complex(v, 0)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return Measurement{}, fmt.Errorf("resample: response transform: %w", err)
	}

	half := fftSize/2 + 1
	re := make([]float64, half)
	im := make([]float64, half)

	for i := range half {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}

	mag := make([]float64, half)
	vecmath.Magnitude(mag, re, im)

	var (
		worstStop   float64
		worstRipple float64
	)

	for i, m := range mag {
		f := float64(i) / float64(fftSize)

		switch {
		case f <= passEdge:
			dev := math.Abs(20 * math.Log10(math.Max(m, 1e-30)))
			if dev > worstRipple {
				worstRipple = dev
			}
		case f >= stopEdge:
			if m > worstStop {
				worstStop = m
			}
		}
	}

	stopDB := -20 * math.Log10(math.Max(worstStop, 1e-30))

	return Measurement{StopbandDB: stopDB, PassbandRippleDB: worstRipple}, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
