package core

import "testing"

func TestEnsureLen(t *testing.T) {
	buf := make([]float64, 4, 16)

	got := EnsureLen(buf, 8)
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8", len(got))
	}

	if &got[0] != &buf[0] {
		t.Fatal("capacity should have been reused")
	}

	grown := EnsureLen(buf, 32)
	if len(grown) != 32 {
		t.Fatalf("len = %d, want 32", len(grown))
	}
}

func TestZeroAndCopyInto(t *testing.T) {
	buf := []float64{1, 2, 3}
	Zero(buf)

	for i, v := range buf {
		if v != 0 {
			t.Fatalf("index %d not zeroed: %v", i, v)
		}
	}

	dst := make([]float64, 2)

	n := CopyInto(dst, []float64{5, 6, 7})
	if n != 2 || dst[0] != 5 || dst[1] != 6 {
		t.Fatalf("CopyInto = %d, dst = %v", n, dst)
	}
}
