// Package timer implements the Game Boy timer system.
//
// The timer system consists of:
//   - DIV: Divider register (increments every 256 cycles)
//   - TIMA: Timer counter (increments at configurable rate)
//   - TMA: Timer modulo (value to reload into TIMA on overflow)
//   - TAC: Timer control (enable and clock select)
//
// The registers themselves live in the MMU's I/O block. The timer reads all
// four at the start of every step and writes them back at the end, so a
// program may write them at any time between steps. Only the two cycle
// accumulators are private; the MMU calls ResetDivider when the CPU writes
// DIV so the hidden divider restarts with it.
package timer

import "github.com/richardwooding/dmgcore/internal/interrupts"

// Register addresses.
const (
	DIV  = 0xFF04
	TIMA = 0xFF05
	TMA  = 0xFF06
	TAC  = 0xFF07
)

// TAC register bits.
const (
	tacEnableBit = 0x04 // Bit 2: Timer enable
	tacClockMask = 0x03 // Bits 1-0: Clock select
)

// DividerPeriod is the number of cycles between DIV increments.
const DividerPeriod = 256

// counterPeriods maps the TAC clock select to cycles per TIMA increment.
var counterPeriods = [4]int{1024, 16, 64, 256}

// Registers is raw access to the I/O block. Loads and stores bypass the
// side effects a CPU write would have (a CPU write to DIV clears it).
type Registers interface {
	Load(addr uint16) uint8
	Store(addr uint16, value uint8)
}

// Timer represents the Game Boy timer system.
type Timer struct {
	divCycles  int // Cycles since the last DIV increment
	timaCycles int // Cycles since the last TIMA increment

	// Stopped freezes the divider (STOP mode).
	Stopped bool
}

// New creates a new Timer.
func New() *Timer {
	return &Timer{}
}

// Period returns the TIMA increment period selected by a TAC value.
func Period(tac uint8) int {
	return counterPeriods[tac&tacClockMask]
}

// Step advances the timer by the given number of CPU cycles. It returns true
// when TIMA overflowed, in which case TIMA has been reloaded from TMA and the
// timer interrupt has been requested in IF.
func (t *Timer) Step(regs Registers, cycles int) bool {
	div := regs.Load(DIV)
	tima := regs.Load(TIMA)
	tma := regs.Load(TMA)
	tac := regs.Load(TAC)

	if !t.Stopped {
		t.divCycles += cycles
		for t.divCycles >= DividerPeriod {
			t.divCycles -= DividerPeriod
			div++
		}
	}

	overflow := false
	if tac&tacEnableBit != 0 {
		period := Period(tac)
		t.timaCycles += cycles
		for t.timaCycles >= period {
			t.timaCycles -= period
			tima++
			if tima == 0 {
				// Overflow reloads from TMA rather than wrapping to zero.
				tima = tma
				overflow = true
			}
		}
	}

	regs.Store(DIV, div)
	regs.Store(TIMA, tima)

	if overflow {
		regs.Store(interrupts.IF, regs.Load(interrupts.IF)|interrupts.Timer.Mask())
	}
	return overflow
}

// ResetDivider restarts the divider sub-counter. The MMU calls it on every
// CPU write to DIV, including writes that land while DIV already reads 0.
func (t *Timer) ResetDivider() {
	t.divCycles = 0
}
