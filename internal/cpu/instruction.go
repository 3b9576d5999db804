package cpu

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// PrefixCB introduces the extended opcode space.
const PrefixCB = 0xCB

// CyclesInvalid is the cycle cost reported by the unimplemented descriptor.
const CyclesInvalid = -1

// Opcode identifies an instruction. Extended opcodes keep the 0xCB prefix in
// the high byte, so 0xCB7C is BIT 7,H.
type Opcode uint16

// Extended reports whether o lives in the 0xCB-prefixed space.
func (o Opcode) Extended() bool {
	return o>>8 == PrefixCB
}

func (o Opcode) String() string {
	if o.Extended() {
		return fmt.Sprintf("CB %02X", uint8(o)) //nolint:gosec // G115: low byte
	}
	return fmt.Sprintf("%02X", uint16(o))
}

// Behavior executes one decoded instruction against the CPU and memory. It
// receives the operand bytes in instruction order and returns the cycles the
// instruction actually took.
type Behavior func(c *CPU, mem Memory, args []uint8) int

// Instruction describes one opcode.
//
// Cycles is the nominal cost. For conditional control flow it is the cost
// when the condition does not hold; the behavior reports the taken cost.
type Instruction struct {
	Opcode   Opcode
	Mnemonic string
	Length   int
	Cycles   int

	exec Behavior
}

// Implemented reports whether the descriptor has a behavior attached.
func (i Instruction) Implemented() bool {
	return i.exec != nil
}

// OperandCount is the number of data bytes following the opcode. The 0xCB
// prefix is part of the opcode, not an operand.
func (i Instruction) OperandCount() int {
	if i.Opcode.Extended() {
		return i.Length - 2
	}
	return i.Length - 1
}

// Format renders the mnemonic with its operand placeholders filled in.
func (i Instruction) Format(args []uint8) string {
	s := i.Mnemonic
	switch {
	case len(args) == 2:
		v := binary.LittleEndian.Uint16(args)
		s = strings.Replace(s, "d16", fmt.Sprintf("$%04X", v), 1)
		s = strings.Replace(s, "a16", fmt.Sprintf("$%04X", v), 1)
	case len(args) == 1:
		s = strings.Replace(s, "d8", fmt.Sprintf("$%02X", args[0]), 1)
		s = strings.Replace(s, "a8", fmt.Sprintf("$%02X", args[0]), 1)
		r8 := fmt.Sprintf("%+d", int8(args[0])) //nolint:gosec // G115: signed displacement
		s = strings.Replace(s, "+r8", r8, 1)
		s = strings.Replace(s, "r8", r8, 1)
	}
	return s
}

var (
	instructionSet   [256]Instruction
	instructionSetCB [256]Instruction
)

// Lookup returns the descriptor for op. Opcodes with no behavior resolve to
// the unimplemented descriptor, whose Cycles is CyclesInvalid.
func Lookup(op Opcode) Instruction {
	var ins Instruction
	switch {
	case op.Extended():
		ins = instructionSetCB[uint8(op)] //nolint:gosec // G115: low byte
	case op <= 0xFF:
		ins = instructionSet[op]
	}
	if !ins.Implemented() {
		return unimplemented(op)
	}
	return ins
}

func unimplemented(op Opcode) Instruction {
	length := 1
	if op.Extended() {
		length = 2
	}
	return Instruction{Opcode: op, Mnemonic: "???", Length: length, Cycles: CyclesInvalid}
}

// define installs a base-space instruction.
func define(opcode uint8, mnemonic string, length, cycles int, fn Behavior) {
	instructionSet[opcode] = Instruction{
		Opcode:   Opcode(opcode),
		Mnemonic: mnemonic,
		Length:   length,
		Cycles:   cycles,
		exec:     fn,
	}
}

// defineCB installs an extended-space instruction. Every extended
// instruction is two bytes: the prefix and the opcode.
func defineCB(opcode uint8, mnemonic string, cycles int, fn Behavior) {
	instructionSetCB[opcode] = Instruction{
		Opcode:   PrefixCB<<8 | Opcode(opcode),
		Mnemonic: mnemonic,
		Length:   2,
		Cycles:   cycles,
		exec:     fn,
	}
}

func word(args []uint8) uint16 {
	return binary.LittleEndian.Uint16(args)
}
