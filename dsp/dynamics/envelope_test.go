package dynamics

import (
	"math"
	"testing"
)

func TestNewFollowerValidation(t *testing.T) {
	cases := []struct {
		name       string
		sampleRate float64
		attack     float64
		release    float64
	}{
		{"ZeroSampleRate", 0, 0.001, 0.05},
		{"NegativeSampleRate", -48000, 0.001, 0.05},
		{"ZeroAttack", 48000, 0, 0.05},
		{"NegativeRelease", 48000, 0.001, -0.05},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewFollower(tc.sampleRate, tc.attack, tc.release); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTimeCoeff(t *testing.T) {
	coeff := TimeCoeff(48000, 0.05)
	want := math.Exp(-1.0 / (48000 * 0.05))

	if math.Abs(coeff-want) > 1e-15 {
		t.Fatalf("coefficient mismatch: got %v, want %v", coeff, want)
	}

	if coeff <= 0 || coeff >= 1 {
		t.Fatalf("coefficient out of range: %v", coeff)
	}
}

func TestFollowerConvergence(t *testing.T) {
	f, err := NewFollower(48000, 0.0001, 0.05)
	if err != nil {
		t.Fatal(err)
	}

	// Attack phase: the envelope falls toward a reduced gain target and
	// lands within a handful of time constants.
	target := 0.25
	for i := 0; i < 48; i++ {
		f.Process(target)
	}

	if math.Abs(f.Value()-target) > 1e-3 {
		t.Fatalf("attack did not converge: got %v, want %v", f.Value(), target)
	}

	// Release phase: returning to unity uses the slower coefficient.
	f.Process(1.0)
	afterOne := f.Value()

	expected := 1.0 + (target-1.0)*f.ReleaseCoeff()
	if math.Abs(afterOne-expected) > 1e-9 {
		t.Fatalf("release step mismatch: got %v, want %v", afterOne, expected)
	}
}

func TestFollowerAsymmetry(t *testing.T) {
	f, err := NewFollower(48000, 0.0001, 0.1)
	if err != nil {
		t.Fatal(err)
	}

	// Drop to a low gain, then recover. The drop must be far faster than
	// the recovery.
	f.Process(0.1)
	drop := 1.0 - f.Value()

	f.Reset()
	f.value = 0.1
	f.Process(1.0)
	rise := f.Value() - 0.1

	if drop <= rise {
		t.Fatalf("attack should outrun release: drop %v, rise %v", drop, rise)
	}
}

func TestFollowerFloor(t *testing.T) {
	f, err := NewFollower(48000, 0.00001, 0.05)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4096; i++ {
		f.Process(0)
	}

	if f.Value() != MinGain {
		t.Fatalf("envelope should floor at MinGain: got %v", f.Value())
	}
}

func TestFollowerProcessWithRelease(t *testing.T) {
	f, err := NewFollower(48000, 0.0001, 0.05)
	if err != nil {
		t.Fatal(err)
	}

	f.value = 0.5
	slow := TimeCoeff(48000, 0.15)

	got := f.ProcessWithRelease(1.0, slow)
	want := 1.0 + (0.5-1.0)*slow

	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("override coefficient ignored: got %v, want %v", got, want)
	}
}

func TestFollowerReset(t *testing.T) {
	f, err := NewFollower(48000, 0.001, 0.05)
	if err != nil {
		t.Fatal(err)
	}

	f.Process(0.2)
	f.Reset()

	if f.Value() != 1.0 {
		t.Fatalf("reset should restore unity gain: got %v", f.Value())
	}
}
