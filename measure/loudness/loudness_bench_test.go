package loudness

import (
	"fmt"
	"testing"
)

func BenchmarkMeter_ProcessBlock(b *testing.B) {
	sizes := []int{128, 512, 2048}

	channels := []int{1, 2}
	for _, size := range sizes {
		for _, ch := range channels {
			b.Run(fmt.Sprintf("%dx%d", size, ch), func(b *testing.B) {
				meter := NewMeter(WithChannels(ch))
				block := make([]float64, size*ch)
				b.SetBytes(int64(size * ch * 8))
				b.ResetTimer()

				for range b.N {
					meter.ProcessBlock(block)
				}
			})
		}
	}
}

func BenchmarkMeter_ProcessPlanar(b *testing.B) {
	meter := NewMeter(WithChannels(2))
	block := [][]float64{make([]float64, 128), make([]float64, 128)}
	b.SetBytes(int64(2 * 128 * 8))

	for range b.N {
		meter.ProcessPlanar(block)
	}
}
