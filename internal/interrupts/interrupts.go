// Package interrupts implements the Game Boy interrupt controller.
//
// The enable (IE, 0xFFFF) and request (IF, 0xFF0F) registers are plain
// memory-mapped bytes owned by the MMU. This package only holds the master
// enable flag and knows how to read, prioritise and acknowledge requests
// through the bus.
package interrupts

import "fmt"

// Register addresses.
const (
	IF = 0xFF0F // Interrupt flag (requests)
	IE = 0xFFFF // Interrupt enable
)

// Bus is the memory the controller reads IE and IF through.
type Bus interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
}

// Interrupt is an interrupt source. The value is its bit number in IE/IF,
// which is also its priority: lower is serviced first.
type Interrupt uint8

// Interrupt sources in priority order.
const (
	VBlank Interrupt = iota
	LCDStat
	Timer
	Serial
	Joypad
)

// Count is the number of interrupt sources.
const Count = 5

// Mask returns the IE/IF bit for i.
func (i Interrupt) Mask() uint8 {
	return 1 << i
}

// Vector returns the fixed handler address for i.
func (i Interrupt) Vector() uint16 {
	return 0x0040 + uint16(i)*8
}

func (i Interrupt) String() string {
	switch i {
	case VBlank:
		return "VBlank"
	case LCDStat:
		return "LCD STAT"
	case Timer:
		return "Timer"
	case Serial:
		return "Serial"
	case Joypad:
		return "Joypad"
	}
	return fmt.Sprintf("Interrupt(%d)", uint8(i))
}

// Controller holds the interrupt master enable flag.
type Controller struct {
	IME bool
}

// Request sets the request bit for i in IF.
func Request(bus Bus, i Interrupt) {
	bus.Write(IF, bus.Read(IF)|i.Mask())
}

// Requested returns the request bits of IF.
func Requested(bus Bus) uint8 {
	return bus.Read(IF) & 0x1F
}

// Pending returns the interrupts that are both requested and enabled.
func Pending(bus Bus) uint8 {
	return bus.Read(IE) & bus.Read(IF) & 0x1F
}

// Highest returns the highest-priority interrupt in a pending mask.
func Highest(pending uint8) (Interrupt, bool) {
	for i := VBlank; i < Count; i++ {
		if pending&i.Mask() != 0 {
			return i, true
		}
	}
	return 0, false
}

// Acknowledge clears the request bit for i.
func Acknowledge(bus Bus, i Interrupt) {
	bus.Write(IF, bus.Read(IF)&^i.Mask())
}

// Poll returns the interrupt that would be serviced now, if any. Nothing is
// serviced while IME is clear.
func (c *Controller) Poll(bus Bus) (Interrupt, bool) {
	if !c.IME {
		return 0, false
	}
	return Highest(Pending(bus))
}
