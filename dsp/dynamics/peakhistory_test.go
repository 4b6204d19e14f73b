package dynamics

import (
	"math/rand/v2"
	"testing"
)

func TestNewPeakHistoryValidation(t *testing.T) {
	if _, err := NewPeakHistory(0); err == nil {
		t.Fatal("expected error for zero window")
	}
}

func TestPeakHistorySlidingMax(t *testing.T) {
	p, err := NewPeakHistory(4)
	if err != nil {
		t.Fatal(err)
	}

	input := []float64{0.1, 0.9, 0.2, 0.3, 0.4, 0.1, 0.1, 0.1, 0.05}
	want := []float64{0.1, 0.9, 0.9, 0.9, 0.9, 0.4, 0.4, 0.4, 0.1}

	for i, v := range input {
		p.Push(v)

		if got := p.Max(); got != want[i] {
			t.Fatalf("max mismatch at sample %d: got %v, want %v", i, got, want[i])
		}
	}
}

func TestPeakHistoryMatchesBruteForce(t *testing.T) {
	const window = 37

	p, err := NewPeakHistory(window)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewPCG(7, 13))
	history := make([]float64, 0, 2048)

	for i := 0; i < 2048; i++ {
		v := rng.Float64()
		p.Push(v)
		history = append(history, v)

		start := len(history) - window
		if start < 0 {
			start = 0
		}

		var max float64
		for _, h := range history[start:] {
			if h > max {
				max = h
			}
		}

		if got := p.Max(); got != max {
			t.Fatalf("max mismatch at sample %d: got %v, want %v", i, got, max)
		}
	}
}

func TestPeakHistoryReset(t *testing.T) {
	p, err := NewPeakHistory(8)
	if err != nil {
		t.Fatal(err)
	}

	p.Push(0.7)
	p.Reset()

	if got := p.Max(); got != 0 {
		t.Fatalf("reset should clear the window: got %v", got)
	}

	p.Push(0.3)

	if got := p.Max(); got != 0.3 {
		t.Fatalf("push after reset should track again: got %v", got)
	}
}
