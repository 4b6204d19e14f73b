package testutil

import (
	"fmt"
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()

	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MaxAbs returns the maximum absolute value in data.
func MaxAbs(data []float64) float64 {
	peak := 0.0

	for _, v := range data {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}

	return peak
}

// MaxAbsDiff returns the maximum absolute difference between two slices.
// Returns an error if the slices differ in length.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}

	maxDiff := 0.0

	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > maxDiff {
			maxDiff = d
		}
	}

	return maxDiff, nil
}

// AlignedMaxAbsDiff shifts b by each lag in [0, maxLag] against a and
// returns the smallest maximum absolute difference over the overlap,
// together with the winning lag. Useful for comparing filtered signals
// whose group delay is only approximately known.
func AlignedMaxAbsDiff(a, b []float64, maxLag int) (best float64, lag int) {
	best = math.Inf(1)

	for l := 0; l <= maxLag; l++ {
		if l >= len(b) {
			break
		}

		n := len(a)
		if len(b)-l < n {
			n = len(b) - l
		}

		worst := 0.0

		for i := 0; i < n; i++ {
			d := math.Abs(a[i] - b[i+l])
			if d > worst {
				worst = d
			}
		}

		if worst < best {
			best = worst
			lag = l
		}
	}

	return best, lag
}
