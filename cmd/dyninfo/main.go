// Command dyninfo inspects the dynamics processors from the command
// line: parameter schemas, limiter gain curves, oversampling filter
// quality and loudness of generated test tones.
//
// Examples:
//
//	dyninfo params limiter
//	dyninfo curve --algorithm smooth --from -6 --to 3
//	dyninfo filter --factor 4 --quality best
//	dyninfo loudness --freq 997 --level -14
package main

import (
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/cwbudde/algo-dynamics/dsp/dynamics"
	"github.com/cwbudde/algo-dynamics/dsp/resample"
	"github.com/cwbudde/algo-dynamics/engine"
	"github.com/cwbudde/algo-dynamics/measure/loudness"
)

type paramsCmd struct {
	Engine string `arg:"" optional:"" enum:"compressor,limiter," help:"Engine to describe (default: both)."`
}

func (c *paramsCmd) Run() error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if c.Engine == "" || c.Engine == "compressor" {
		printSchema(w, "compressor", engine.CompressorSchema())
	}

	if c.Engine == "" || c.Engine == "limiter" {
		printSchema(w, "limiter", engine.LimiterSchema())
	}

	return nil
}

func printSchema(w *tabwriter.Writer, name string, schema engine.Schema) {
	fmt.Fprintf(w, "%s\n", name)
	fmt.Fprintln(w, "  name\tmin\tmax\tdefault\tvalues")

	for _, info := range schema.Describe() {
		values := "-"
		if len(info.Discrete) > 0 {
			parts := make([]string, len(info.Discrete))
			for i, d := range info.Discrete {
				parts[i] = fmt.Sprintf("%g", d)
			}

			values = strings.Join(parts, ",")
		}

		fmt.Fprintf(w, "  %s\t%g\t%g\t%g\t%s\n", info.Name, info.Min, info.Max, info.Default, values)
	}

	fmt.Fprintln(w)
}

type curveCmd struct {
	Algorithm string  `default:"transparent" enum:"transparent,aggressive,smooth" help:"Gain curve variant."`
	Threshold float64 `default:"-0.3" help:"Threshold in dB."`
	Ceiling   float64 `default:"-0.1" help:"Output ceiling in dB."`
	Knee      float64 `default:"4" help:"Knee width in dB for the smooth curve."`
	From      float64 `default:"-12" help:"Sweep start in dB."`
	To        float64 `default:"6" help:"Sweep end in dB."`
	Step      float64 `default:"0.5" help:"Sweep step in dB."`
}

func (c *curveCmd) Run() error {
	curve, err := dynamics.ParseCurve(c.Algorithm)
	if err != nil {
		return err
	}

	g, err := dynamics.NewLimiterGain(curve, c.Threshold, c.Ceiling, c.Knee)
	if err != nil {
		return err
	}

	if c.Step <= 0 || c.To < c.From {
		return fmt.Errorf("invalid sweep: from %g to %g step %g", c.From, c.To, c.Step)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	defer w.Flush()

	fmt.Fprintln(w, "in dB\tgain dB\tout dB\t")

	for dB := c.From; dB <= c.To+1e-9; dB += c.Step {
		peak := math.Pow(10, dB/20)
		gain := g.GainForPeak(peak)
		gainDB := 20 * math.Log10(gain)

		fmt.Fprintf(w, "%.2f\t%.3f\t%.3f\t\n", dB, gainDB, dB+gainDB)
	}

	return nil
}

type filterCmd struct {
	Factor  int     `default:"4" help:"Oversampling factor."`
	Quality string  `default:"balanced" enum:"fast,balanced,best" help:"Design quality preset."`
	Taps    int     `default:"0" help:"Taps per phase override (0 keeps the preset)."`
	Beta    float64 `default:"0" help:"Kaiser beta override (0 keeps the preset)."`
}

func (c *filterCmd) Run() error {
	opts := []resample.Option{resample.WithQuality(parseQuality(c.Quality))}

	if c.Taps > 0 {
		opts = append(opts, resample.WithTapsPerPhase(c.Taps))
	}

	if c.Beta > 0 {
		opts = append(opts, resample.WithKaiserBeta(c.Beta))
	}

	m, err := resample.MeasureFilter(c.Factor, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("factor:           %dx\n", c.Factor)
	fmt.Printf("stopband:         %.1f dB\n", m.StopbandDB)
	fmt.Printf("passband ripple:  %.3f dB\n", m.PassbandRippleDB)

	return nil
}

func parseQuality(name string) resample.Quality {
	switch name {
	case "fast":
		return resample.QualityFast
	case "best":
		return resample.QualityBest
	default:
		return resample.QualityBalanced
	}
}

type loudnessCmd struct {
	Freq       float64 `default:"997" help:"Tone frequency in Hz."`
	Level      float64 `default:"-14" help:"Tone level in dBFS."`
	Seconds    float64 `default:"5" help:"Tone duration in seconds."`
	SampleRate float64 `default:"48000" help:"Sample rate in Hz."`
}

func (c *loudnessCmd) Run() error {
	if c.Seconds <= 0 || c.SampleRate <= 0 {
		return fmt.Errorf("invalid tone: %g s at %g Hz", c.Seconds, c.SampleRate)
	}

	m := loudness.NewMeter(
		loudness.WithSampleRate(c.SampleRate),
		loudness.WithChannels(1),
	)

	amplitude := math.Pow(10, c.Level/20)
	n := int(c.Seconds * c.SampleRate)

	m.StartIntegration()

	for i := 0; i < n; i++ {
		m.ProcessFrame([]float64{amplitude * math.Sin(2*math.Pi*c.Freq/c.SampleRate*float64(i))})
	}

	fmt.Printf("momentary:   %.2f LUFS\n", m.Momentary())
	fmt.Printf("short-term:  %.2f LUFS\n", m.ShortTerm())
	fmt.Printf("integrated:  %.2f LUFS\n", m.Integrated())
	fmt.Printf("sample peak: %.4f\n", m.Peaks()[0])

	return nil
}

var cli struct {
	Params   paramsCmd   `cmd:"" help:"Print the parameter schema of an engine."`
	Curve    curveCmd    `cmd:"" help:"Tabulate a limiter gain curve."`
	Filter   filterCmd   `cmd:"" help:"Measure an oversampling filter design."`
	Loudness loudnessCmd `cmd:"" help:"Measure loudness of a generated test tone."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("dyninfo"),
		kong.Description("Inspection tool for the mastering dynamics processors."),
		kong.UsageOnError(),
	)

	ctx.FatalIfErrorf(ctx.Run())
}
