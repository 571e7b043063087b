package proc

import "testing"

func TestYield(t *testing.T) {
	for i := 0; i < 1000; i++ {
		Yield()
	}
}

func BenchmarkYield(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Yield()
	}
}
