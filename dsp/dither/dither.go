// Package dither provides the additive noise source used for bit-depth
// shaping on the limiter output. Each channel owns an independent
// generator so left/right draws are uncorrelated.
package dither

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	defaultBitDepth = 24
	minBitDepth     = 8
	maxBitDepth     = 32
)

// Type selects the probability distribution of the dither noise.
type Type int

const (
	// TypeNone disables dithering (generator yields zero).
	TypeNone Type = iota
	// TypeRectangular uses a uniform (rectangular) PDF of one LSB width.
	TypeRectangular
	// TypeTriangular uses a triangular PDF (TPDF) of two LSB width,
	// the standard choice for mastering output.
	TypeTriangular

	typeCount // sentinel for validation
)

var typeNames = [typeCount]string{"None", "Rectangular", "Triangular"}

// String returns the name of the dither type.
func (t Type) String() string {
	if t >= 0 && t < typeCount {
		return typeNames[t]
	}

	return fmt.Sprintf("Type(%d)", t)
}

// Valid reports whether t is a known dither type.
func (t Type) Valid() bool {
	return t >= 0 && t < typeCount
}

// Generator produces dither noise scaled to one least-significant bit of
// the target bit depth, in the normalized [-1, 1] sample domain.
type Generator struct {
	ditherType Type
	bitDepth   int
	lsb        float64
	rng        *rand.Rand
}

// Option configures a [Generator].
type Option func(*Generator) error

// WithType sets the dither noise PDF (default [TypeTriangular]).
func WithType(t Type) Option {
	return func(g *Generator) error {
		if !t.Valid() {
			return fmt.Errorf("dither: invalid dither type: %d", t)
		}

		g.ditherType = t

		return nil
	}
}

// WithRNG sets a deterministic random number generator for reproducible output.
func WithRNG(rng *rand.Rand) Option {
	return func(g *Generator) error {
		g.rng = rng
		return nil
	}
}

// NewGenerator creates a dither generator for the given target bit depth.
// The default configuration is triangular dither sized for one LSB.
func NewGenerator(bitDepth int, opts ...Option) (*Generator, error) {
	if bitDepth < minBitDepth || bitDepth > maxBitDepth {
		return nil, fmt.Errorf("dither: bit depth must be in [%d, %d]: %d", minBitDepth, maxBitDepth, bitDepth)
	}

	g := &Generator{
		ditherType: TypeTriangular,
		bitDepth:   bitDepth,
		lsb:        math.Exp2(-float64(bitDepth - 1)),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(g); err != nil {
			return nil, err
		}
	}

	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return g, nil
}

// Default returns a 24-bit triangular generator, the mastering-output
// configuration.
func Default() *Generator {
	g, err := NewGenerator(defaultBitDepth)
	if err != nil {
		panic(err) // defaults are always valid
	}

	return g
}

// Sample draws one noise value. Triangular noise spans [-lsb, +lsb];
// rectangular spans half that.
func (g *Generator) Sample() float64 {
	switch g.ditherType {
	case TypeRectangular:
		return g.lsb * (g.rng.Float64() - 0.5)
	case TypeTriangular:
		return g.lsb * (g.rng.Float64() - g.rng.Float64())
	default:
		return 0
	}
}

// AddTo adds an independent noise draw to each sample in buf.
func (g *Generator) AddTo(buf []float64) {
	if g.ditherType == TypeNone {
		return
	}

	for i := range buf {
		buf[i] += g.Sample()
	}
}

// Amplitude returns the peak noise amplitude in the normalized domain.
func (g *Generator) Amplitude() float64 {
	switch g.ditherType {
	case TypeRectangular:
		return g.lsb / 2
	case TypeTriangular:
		return g.lsb
	default:
		return 0
	}
}

// BitDepth returns the configured target bit depth.
func (g *Generator) BitDepth() int { return g.bitDepth }

// DitherType returns the configured noise PDF.
func (g *Generator) DitherType() Type { return g.ditherType }
