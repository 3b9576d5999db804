package cpu

import "fmt"

// The extended space is fully regular: bits 7-6 pick the group, bits 5-3 the
// shift kind or bit number, bits 2-0 the operand slot.
func init() {
	shifts := [8]struct {
		name string
		fn   func(v uint8, f Flags) (uint8, Flags)
	}{
		{"RLC", func(v uint8, _ Flags) (uint8, Flags) { return rlc(v) }},
		{"RRC", func(v uint8, _ Flags) (uint8, Flags) { return rrc(v) }},
		{"RL", func(v uint8, f Flags) (uint8, Flags) { return rl(v, f.Carry) }},
		{"RR", func(v uint8, f Flags) (uint8, Flags) { return rr(v, f.Carry) }},
		{"SLA", func(v uint8, _ Flags) (uint8, Flags) { return sla(v) }},
		{"SRA", func(v uint8, _ Flags) (uint8, Flags) { return sra(v) }},
		{"SWAP", func(v uint8, _ Flags) (uint8, Flags) { return swap(v) }},
		{"SRL", func(v uint8, _ Flags) (uint8, Flags) { return srl(v) }},
	}

	for i := 0; i < 256; i++ {
		opcode := uint8(i) //nolint:gosec // G115: bounded by loop
		group := opcode >> 6
		n := (opcode >> 3) & 0x07
		r := regOrder[opcode&0x07]

		// Register operands take 8 cycles, (HL) 16, BIT n,(HL) 12.
		cycles := 8
		if r == regHLIndirect {
			cycles = 16
			if group == 1 {
				cycles = 12
			}
		}

		switch group {
		case 0:
			shift := shifts[n]
			defineCB(opcode, fmt.Sprintf("%s %s", shift.name, r), cycles, func(c *CPU, mem Memory, _ []uint8) int {
				result, f := shift.fn(c.read8(mem, r), c.Registers.Flags())
				c.write8(mem, r, result)
				c.Registers.SetFlags(f)
				return cycles
			})
		case 1:
			defineCB(opcode, fmt.Sprintf("BIT %d,%s", n, r), cycles, func(c *CPU, mem Memory, _ []uint8) int {
				c.Registers.SetFlags(bit(c.read8(mem, r), n, c.Registers.Flags()))
				return cycles
			})
		case 2:
			defineCB(opcode, fmt.Sprintf("RES %d,%s", n, r), cycles, func(c *CPU, mem Memory, _ []uint8) int {
				c.write8(mem, r, c.read8(mem, r)&^(1<<n))
				return cycles
			})
		case 3:
			defineCB(opcode, fmt.Sprintf("SET %d,%s", n, r), cycles, func(c *CPU, mem Memory, _ []uint8) int {
				c.write8(mem, r, c.read8(mem, r)|1<<n)
				return cycles
			})
		}
	}
}
