// Package cpu implements the Sharp SM83 CPU emulation for the Game Boy.
package cpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/richardwooding/dmgcore/internal/interrupts"
)

// Memory is the bus the CPU borrows for each step. Word accessors take the
// byte order explicitly; nothing is inferred from the address.
type Memory interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
	ReadWord(addr uint16, order binary.ByteOrder) uint16
	WriteWord(addr uint16, value uint16, order binary.ByteOrder)
}

// ErrUnimplementedOpcode is returned (wrapped) when the decoded opcode has no
// behavior.
var ErrUnimplementedOpcode = errors.New("unimplemented opcode")

// UnimplementedOpcodeError reports the opcode and the address it was fetched from.
type UnimplementedOpcodeError struct {
	Opcode Opcode
	Addr   uint16
}

func (e *UnimplementedOpcodeError) Error() string {
	return fmt.Sprintf("%v %s at 0x%04X", ErrUnimplementedOpcode, e.Opcode, e.Addr)
}

func (e *UnimplementedOpcodeError) Unwrap() error {
	return ErrUnimplementedOpcode
}

// InterruptDispatchCycles is the cost of servicing an interrupt: two wait
// states, two pushes and the jump.
const InterruptDispatchCycles = 20

// CPU represents the Sharp SM83 CPU.
type CPU struct {
	Registers *Registers

	// IRQ holds the master enable flag. IE and IF live in memory.
	IRQ interrupts.Controller

	// Halt and stop states
	halted  bool
	stopped bool

	// imeDelay counts down to the point where a preceding EI takes effect.
	imeDelay int

	// Cycle counter
	Cycles uint64

	visited *visitedSet
	args    [2]uint8
}

// Option configures a CPU.
type Option func(*CPU)

// WithVisitedTracking records every address an instruction is fetched from.
func WithVisitedTracking() Option {
	return func(c *CPU) {
		c.visited = &visitedSet{}
	}
}

// New creates a new CPU instance with an all-zero register file.
func New(opts ...Option) *CPU {
	c := &CPU{
		Registers: NewRegisters(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Halted reports whether instruction fetch is suspended by HALT.
func (c *CPU) Halted() bool {
	return c.halted
}

// Stopped reports whether the CPU is in STOP mode.
func (c *CPU) Stopped() bool {
	return c.stopped
}

// Visited reports whether an instruction was ever fetched from addr. It is
// always false when tracking is off.
func (c *CPU) Visited(addr uint16) bool {
	return c.visited != nil && c.visited.has(addr)
}

// VisitedCount returns the number of distinct instruction addresses seen.
func (c *CPU) VisitedCount() int {
	if c.visited == nil {
		return 0
	}
	return c.visited.count()
}

// Decode fetches the opcode at PC, following the 0xCB prefix, and then its
// operand bytes. PC ends up after the last operand. The returned slice is
// only valid until the next call.
func (c *CPU) Decode(mem Memory) (Instruction, []uint8) {
	op := Opcode(c.fetchByte(mem))
	if op == PrefixCB {
		op = PrefixCB<<8 | Opcode(c.fetchByte(mem))
	}
	ins := Lookup(op)
	args := c.args[:ins.OperandCount()]
	for i := range args {
		args[i] = c.fetchByte(mem)
	}
	return ins, args
}

// Step executes one instruction and returns the cycles taken. A halted or
// stopped CPU burns 4 cycles without fetching.
func (c *CPU) Step(mem Memory) (int, error) {
	if c.halted || c.stopped {
		c.Cycles += 4
		return 4, nil
	}

	addr := c.Registers.PC
	ins, args := c.Decode(mem)
	if !ins.Implemented() {
		return CyclesInvalid, &UnimplementedOpcodeError{Opcode: ins.Opcode, Addr: addr}
	}
	if c.visited != nil {
		c.visited.add(addr)
	}

	cycles := ins.exec(c, mem, args)

	if c.imeDelay > 0 {
		c.imeDelay--
		if c.imeDelay == 0 {
			c.IRQ.IME = true
		}
	}

	c.Cycles += uint64(cycles) //nolint:gosec // G115: cycles are always positive here
	return cycles, nil
}

// HandleInterrupts runs after every step. With IME clear a pending interrupt
// only ends HALT. With IME set the highest-priority pending interrupt is
// serviced: IME is cleared, PC is pushed, its request bit is cleared and PC
// jumps to the vector. It returns the extra cycles spent.
func (c *CPU) HandleInterrupts(mem Memory) int {
	if c.stopped && interrupts.Requested(mem)&interrupts.Joypad.Mask() != 0 {
		c.stopped = false
	}

	if interrupts.Pending(mem) == 0 {
		return 0
	}
	c.halted = false

	it, ok := c.IRQ.Poll(mem)
	if !ok {
		return 0
	}
	c.IRQ.IME = false
	c.imeDelay = 0
	c.push(mem, c.Registers.PC)
	c.Registers.PC = it.Vector()
	interrupts.Acknowledge(mem, it)

	c.Cycles += InterruptDispatchCycles
	return InterruptDispatchCycles
}

// fetchByte fetches the next byte from memory and increments PC.
func (c *CPU) fetchByte(mem Memory) uint8 {
	value := mem.Read(c.Registers.PC)
	c.Registers.PC++
	return value
}

// push pushes a 16-bit value onto the stack.
func (c *CPU) push(mem Memory, value uint16) {
	c.Registers.SP -= 2
	mem.WriteWord(c.Registers.SP, value, binary.LittleEndian)
}

// pop pops a 16-bit value from the stack.
func (c *CPU) pop(mem Memory) uint16 {
	value := mem.ReadWord(c.Registers.SP, binary.LittleEndian)
	c.Registers.SP += 2
	return value
}

// read8 reads an operand slot; slot 6 is the byte at (HL).
func (c *CPU) read8(mem Memory, r Reg) uint8 {
	if r == regHLIndirect {
		return mem.Read(c.Registers.HL())
	}
	return c.Registers.Get(r)
}

// write8 writes an operand slot; slot 6 is the byte at (HL).
func (c *CPU) write8(mem Memory, r Reg, value uint8) {
	if r == regHLIndirect {
		mem.Write(c.Registers.HL(), value)
		return
	}
	c.Registers.Set(r, value)
}

// condition evaluates the NZ, Z, NC, C condition codes.
func (c *CPU) condition(cc uint8) bool {
	switch cc {
	case 0:
		return !c.Registers.ZeroFlag()
	case 1:
		return c.Registers.ZeroFlag()
	case 2:
		return !c.Registers.CarryFlag()
	case 3:
		return c.Registers.CarryFlag()
	}
	panic(fmt.Sprintf("cpu: invalid condition code %d", cc))
}

// visitedSet is a bitset over the 64 KiB address space.
type visitedSet [0x10000 / 64]uint64

func (v *visitedSet) add(addr uint16) {
	v[addr>>6] |= 1 << (addr & 63)
}

func (v *visitedSet) has(addr uint16) bool {
	return v[addr>>6]&(1<<(addr&63)) != 0
}

func (v *visitedSet) count() int {
	n := 0
	for _, w := range v {
		n += bits.OnesCount64(w)
	}
	return n
}
