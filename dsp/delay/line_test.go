package delay

import "testing"

func TestNewValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for zero size")
	}

	if _, err := New(-3); err == nil {
		t.Fatal("expected error for negative size")
	}
}

func TestNewForDuration(t *testing.T) {
	d, err := NewForDuration(2.0, 48000)
	if err != nil {
		t.Fatal(err)
	}

	// 2 ms at 48 kHz = 96 samples, plus the guard slot.
	if d.Len() != 97 {
		t.Fatalf("len = %d, want 97", d.Len())
	}

	if _, err := NewForDuration(-1, 48000); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestIntegerDelay(t *testing.T) {
	d, err := New(8)
	if err != nil {
		t.Fatal(err)
	}

	for i := range 20 {
		d.Write(float64(i))

		if i >= 3 {
			got := d.Read(3)
			if got != float64(i-3) {
				t.Fatalf("at write %d: Read(3) = %v, want %v", i, got, float64(i-3))
			}
		}
	}
}

func TestTick(t *testing.T) {
	d, err := New(5)
	if err != nil {
		t.Fatal(err)
	}

	// Uninitialized region reads back zero.
	if got := d.Tick(1.0, 2); got != 0 {
		t.Fatalf("first tick = %v, want 0", got)
	}

	d.Tick(2.0, 2)

	if got := d.Tick(3.0, 2); got != 1.0 {
		t.Fatalf("tick = %v, want 1.0", got)
	}
}

func TestReset(t *testing.T) {
	d, _ := New(4)
	d.Write(1)
	d.Write(2)

	d.Reset()

	if d.Read(0) != 0 || d.Read(1) != 0 {
		t.Fatal("reset did not clear buffer")
	}
}
