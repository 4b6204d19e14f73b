package dynamics

import (
	"math"
	"testing"
)

func dbToLin(dB float64) float64 { return math.Pow(10, dB/20) }

func linToDB(lin float64) float64 { return 20 * math.Log10(lin) }

func TestNewSoftKneeValidation(t *testing.T) {
	cases := []struct {
		name      string
		threshold float64
		ratio     float64
		knee      float64
	}{
		{"RatioBelowOne", -10, 0.5, 2},
		{"RatioTooLarge", -10, 2000, 2},
		{"NegativeKnee", -10, 4, -1},
		{"KneeTooWide", -10, 4, 30},
		{"NaNThreshold", math.NaN(), 4, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSoftKnee(tc.threshold, tc.ratio, tc.knee); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSoftKneeHardKnee(t *testing.T) {
	k, err := NewSoftKnee(-10, 4, 0)
	if err != nil {
		t.Fatal(err)
	}

	if got := k.GainForLevel(dbToLin(-20)); got != 1.0 {
		t.Fatalf("below threshold should pass untouched: got %v", got)
	}

	if got := k.GainForLevel(dbToLin(-10)); got != 1.0 {
		t.Fatalf("at threshold should pass untouched: got %v", got)
	}

	// 6 dB overshoot at ratio 4 reduces by 6 * (1 - 1/4) = 4.5 dB.
	got := k.GainForLevel(dbToLin(-4))
	want := dbToLin(-4.5)

	if math.Abs(linToDB(got)-linToDB(want)) > 1e-9 {
		t.Fatalf("overshoot gain mismatch: got %v dB, want %v dB", linToDB(got), linToDB(want))
	}
}

func TestSoftKneeContinuity(t *testing.T) {
	k, err := NewSoftKnee(-10, 4, 2)
	if err != nil {
		t.Fatal(err)
	}

	// Sweep across both knee edges in 0.01 dB steps. The gain curve must
	// not jump anywhere.
	prev := linToDB(k.GainForLevel(dbToLin(-14)))
	for dB := -13.99; dB <= -6; dB += 0.01 {
		cur := linToDB(k.GainForLevel(dbToLin(dB)))

		if math.Abs(cur-prev) > 0.01 {
			t.Fatalf("gain discontinuity at %v dB: step %v dB", dB, cur-prev)
		}

		prev = cur
	}
}

func TestSoftKneeMatchesHardOutsideKnee(t *testing.T) {
	soft, err := NewSoftKnee(-10, 4, 2)
	if err != nil {
		t.Fatal(err)
	}

	hard, err := NewSoftKnee(-10, 4, 0)
	if err != nil {
		t.Fatal(err)
	}

	for _, dB := range []float64{-20, -12, -8, -4, 0} {
		s := soft.GainForLevel(dbToLin(dB))
		h := hard.GainForLevel(dbToLin(dB))

		if math.Abs(linToDB(s)-linToDB(h)) > 1e-9 {
			t.Fatalf("curves diverge outside knee at %v dB: soft %v, hard %v", dB, s, h)
		}
	}
}

func TestSoftKneeSilence(t *testing.T) {
	k, err := NewSoftKnee(-10, 4, 2)
	if err != nil {
		t.Fatal(err)
	}

	if got := k.GainForLevel(0); got != 1.0 {
		t.Fatalf("silence should map to unity gain: got %v", got)
	}
}

func TestParseCurve(t *testing.T) {
	for _, c := range []LimiterCurve{CurveTransparent, CurveAggressive, CurveSmooth} {
		parsed, err := ParseCurve(c.String())
		if err != nil {
			t.Fatal(err)
		}

		if parsed != c {
			t.Fatalf("round trip mismatch: got %v, want %v", parsed, c)
		}
	}

	if _, err := ParseCurve("brutal"); err == nil {
		t.Fatal("expected error for unknown curve")
	}
}

func TestLimiterGainCeilingGuarantee(t *testing.T) {
	for _, curve := range []LimiterCurve{CurveTransparent, CurveAggressive, CurveSmooth} {
		t.Run(curve.String(), func(t *testing.T) {
			g, err := NewLimiterGain(curve, -0.3, -0.1, 4)
			if err != nil {
				t.Fatal(err)
			}

			ceiling := g.CeilingLinear()

			for dB := -0.3; dB <= 12; dB += 0.05 {
				peak := dbToLin(dB)
				gain := g.GainForPeak(peak)

				if peak*gain > ceiling*(1+1e-12) {
					t.Fatalf("ceiling violated at %v dB: out %v, ceiling %v", dB, peak*gain, ceiling)
				}

				if gain < MinGain || gain > 1.0 {
					t.Fatalf("gain out of range at %v dB: %v", dB, gain)
				}
			}
		})
	}
}

func TestLimiterGainBelowThreshold(t *testing.T) {
	g, err := NewLimiterGain(CurveTransparent, -0.3, -0.1, 4)
	if err != nil {
		t.Fatal(err)
	}

	if got := g.GainForPeak(dbToLin(-6)); got != 1.0 {
		t.Fatalf("below threshold should be unity: got %v", got)
	}

	if got := g.GainForPeak(0); got != 1.0 {
		t.Fatalf("silence should be unity: got %v", got)
	}
}

func TestLimiterGainAggressiveIdentityUpToCeiling(t *testing.T) {
	g, err := NewLimiterGain(CurveAggressive, -1.0, -0.1, 4)
	if err != nil {
		t.Fatal(err)
	}

	if got := g.GainForPeak(dbToLin(-0.5)); got != 1.0 {
		t.Fatalf("aggressive curve should pass sub-ceiling peaks: got %v", got)
	}

	peak := dbToLin(3)
	got := g.GainForPeak(peak)

	if math.Abs(peak*got-g.CeilingLinear()) > 1e-12 {
		t.Fatalf("aggressive curve should clamp to ceiling: out %v", peak*got)
	}
}

func TestLimiterGainSetters(t *testing.T) {
	g, err := NewLimiterGain(CurveTransparent, -0.3, -0.1, 4)
	if err != nil {
		t.Fatal(err)
	}

	if err := g.SetCurve(LimiterCurve(99)); err == nil {
		t.Fatal("expected error for invalid curve")
	}

	if err := g.SetCeiling(math.Inf(1)); err == nil {
		t.Fatal("expected error for infinite ceiling")
	}

	if err := g.SetKneeWidth(-2); err == nil {
		t.Fatal("expected error for negative knee width")
	}

	if err := g.SetCeiling(-1.0); err != nil {
		t.Fatal(err)
	}

	if math.Abs(g.CeilingLinear()-dbToLin(-1.0)) > 1e-15 {
		t.Fatalf("ceiling not updated: %v", g.CeilingLinear())
	}
}
