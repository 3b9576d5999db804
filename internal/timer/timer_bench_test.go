package timer

import (
	"testing"
)

// Benchmark tests to measure timer performance

func BenchmarkTimer_Disabled(b *testing.B) {
	regs := ioBlock{TAC: 0x00}
	timer := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		timer.Step(regs, 100)
	}
}

func BenchmarkTimer_HighFrequency(b *testing.B) {
	regs := ioBlock{TAC: 0x05} // every 16 cycles (worst case)
	timer := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		timer.Step(regs, 100)
	}
}

func BenchmarkTimer_LowFrequency(b *testing.B) {
	regs := ioBlock{TAC: 0x04} // every 1024 cycles
	timer := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		timer.Step(regs, 100)
	}
}

func BenchmarkTimer_Frame(b *testing.B) {
	regs := ioBlock{TAC: 0x05}
	timer := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// One frame of 4-cycle instructions.
		for c := 0; c < 70224; c += 4 {
			timer.Step(regs, 4)
		}
	}
}
