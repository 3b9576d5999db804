package cpu

import (
	"encoding/binary"
	"fmt"
)

// regOrder is the operand encoding used in the low three bits (and bits 5-3)
// of most opcodes. Slot 6 is the byte at (HL).
var regOrder = [8]Reg{RegB, RegC, RegD, RegE, RegH, RegL, regHLIndirect, RegA}

var conditionNames = [4]string{"NZ", "Z", "NC", "C"}

// pair16 covers the rr operand encodings. Slot 3 is SP for loads and
// arithmetic and AF for PUSH/POP.
type pair16 struct {
	name string
	get  func(r *Registers) uint16
	set  func(r *Registers, v uint16)
}

var (
	pairsSP = [4]pair16{
		{"BC", (*Registers).BC, (*Registers).SetBC},
		{"DE", (*Registers).DE, (*Registers).SetDE},
		{"HL", (*Registers).HL, (*Registers).SetHL},
		{"SP", func(r *Registers) uint16 { return r.SP }, func(r *Registers, v uint16) { r.SP = v }},
	}
	pairsAF = [4]pair16{
		pairsSP[0], pairsSP[1], pairsSP[2],
		{"AF", (*Registers).AF, (*Registers).SetAF},
	}
)

func init() {
	defineMisc()
	defineLoads()
	defineArithmetic()
	defineControlFlow()
}

func defineMisc() {
	define(0x00, "NOP", 1, 4, func(*CPU, Memory, []uint8) int { return 4 })
	define(0x10, "STOP", 2, 4, func(c *CPU, _ Memory, _ []uint8) int {
		c.stopped = true
		return 4
	})
	define(0x76, "HALT", 1, 4, func(c *CPU, _ Memory, _ []uint8) int {
		c.halted = true
		return 4
	})
	define(0xF3, "DI", 1, 4, func(c *CPU, _ Memory, _ []uint8) int {
		c.IRQ.IME = false
		c.imeDelay = 0
		return 4
	})
	define(0xFB, "EI", 1, 4, func(c *CPU, _ Memory, _ []uint8) int {
		// IME is set once the following instruction has run.
		if !c.IRQ.IME && c.imeDelay == 0 {
			c.imeDelay = 2
		}
		return 4
	})
	define(0x27, "DAA", 1, 4, func(c *CPU, _ Memory, _ []uint8) int {
		a, f := daa(c.Registers.A, c.Registers.Flags())
		c.Registers.A = a
		c.Registers.SetFlags(f)
		return 4
	})
	define(0x2F, "CPL", 1, 4, func(c *CPU, _ Memory, _ []uint8) int {
		c.Registers.A = ^c.Registers.A
		c.Registers.SetFlagTo(FlagN, true)
		c.Registers.SetFlagTo(FlagH, true)
		return 4
	})
	define(0x37, "SCF", 1, 4, func(c *CPU, _ Memory, _ []uint8) int {
		c.Registers.SetFlags(Flags{Zero: c.Registers.ZeroFlag(), Carry: true})
		return 4
	})
	define(0x3F, "CCF", 1, 4, func(c *CPU, _ Memory, _ []uint8) int {
		c.Registers.SetFlags(Flags{Zero: c.Registers.ZeroFlag(), Carry: !c.Registers.CarryFlag()})
		return 4
	})

	// Accumulator rotates always clear Z.
	accRotate := func(opcode uint8, name string, op func(c *CPU) (uint8, Flags)) {
		define(opcode, name, 1, 4, func(c *CPU, _ Memory, _ []uint8) int {
			result, f := op(c)
			f.Zero = false
			c.Registers.A = result
			c.Registers.SetFlags(f)
			return 4
		})
	}
	accRotate(0x07, "RLCA", func(c *CPU) (uint8, Flags) { return rlc(c.Registers.A) })
	accRotate(0x0F, "RRCA", func(c *CPU) (uint8, Flags) { return rrc(c.Registers.A) })
	accRotate(0x17, "RLA", func(c *CPU) (uint8, Flags) { return rl(c.Registers.A, c.Registers.CarryFlag()) })
	accRotate(0x1F, "RRA", func(c *CPU) (uint8, Flags) { return rr(c.Registers.A, c.Registers.CarryFlag()) })
}

func defineLoads() {
	// LD r, r' and LD r, (HL) / LD (HL), r. 0x76 would be LD (HL),(HL) and
	// is HALT instead.
	for i := 0; i < 64; i++ {
		opcode := uint8(0x40 + i) //nolint:gosec // G115: bounded by loop
		if opcode == 0x76 {
			continue
		}
		dst, src := regOrder[i>>3], regOrder[i&7]
		cycles := 4
		if dst == regHLIndirect || src == regHLIndirect {
			cycles = 8
		}
		define(opcode, fmt.Sprintf("LD %s,%s", dst, src), 1, cycles, func(c *CPU, mem Memory, _ []uint8) int {
			c.write8(mem, dst, c.read8(mem, src))
			return cycles
		})
	}

	// LD r, d8
	for i, r := range regOrder {
		cycles := 8
		if r == regHLIndirect {
			cycles = 12
		}
		define(uint8(0x06+i*8), fmt.Sprintf("LD %s,d8", r), 2, cycles, func(c *CPU, mem Memory, args []uint8) int { //nolint:gosec // G115: bounded by loop
			c.write8(mem, r, args[0])
			return cycles
		})
	}

	// LD rr, d16
	for i, p := range pairsSP {
		define(uint8(0x01+i*16), "LD "+p.name+",d16", 3, 12, func(c *CPU, _ Memory, args []uint8) int { //nolint:gosec // G115: bounded by loop
			p.set(c.Registers, word(args))
			return 12
		})
	}

	// Register-indirect accumulator loads and stores.
	indirect := []struct {
		store, load uint8
		name        string
		addr        func(c *CPU) uint16
	}{
		{0x02, 0x0A, "(BC)", func(c *CPU) uint16 { return c.Registers.BC() }},
		{0x12, 0x1A, "(DE)", func(c *CPU) uint16 { return c.Registers.DE() }},
		{0x22, 0x2A, "(HL+)", func(c *CPU) uint16 { hl := c.Registers.HL(); c.Registers.SetHL(hl + 1); return hl }},
		{0x32, 0x3A, "(HL-)", func(c *CPU) uint16 { hl := c.Registers.HL(); c.Registers.SetHL(hl - 1); return hl }},
	}
	for _, ind := range indirect {
		define(ind.store, "LD "+ind.name+",A", 1, 8, func(c *CPU, mem Memory, _ []uint8) int {
			mem.Write(ind.addr(c), c.Registers.A)
			return 8
		})
		define(ind.load, "LD A,"+ind.name, 1, 8, func(c *CPU, mem Memory, _ []uint8) int {
			c.Registers.A = mem.Read(ind.addr(c))
			return 8
		})
	}

	define(0x08, "LD (a16),SP", 3, 20, func(c *CPU, mem Memory, args []uint8) int {
		mem.WriteWord(word(args), c.Registers.SP, binary.LittleEndian)
		return 20
	})
	define(0xEA, "LD (a16),A", 3, 16, func(c *CPU, mem Memory, args []uint8) int {
		mem.Write(word(args), c.Registers.A)
		return 16
	})
	define(0xFA, "LD A,(a16)", 3, 16, func(c *CPU, mem Memory, args []uint8) int {
		c.Registers.A = mem.Read(word(args))
		return 16
	})

	// High page 0xFF00+offset.
	define(0xE0, "LDH (a8),A", 2, 12, func(c *CPU, mem Memory, args []uint8) int {
		mem.Write(0xFF00+uint16(args[0]), c.Registers.A)
		return 12
	})
	define(0xF0, "LDH A,(a8)", 2, 12, func(c *CPU, mem Memory, args []uint8) int {
		c.Registers.A = mem.Read(0xFF00 + uint16(args[0]))
		return 12
	})
	define(0xE2, "LD (C),A", 1, 8, func(c *CPU, mem Memory, _ []uint8) int {
		mem.Write(0xFF00+uint16(c.Registers.C), c.Registers.A)
		return 8
	})
	define(0xF2, "LD A,(C)", 1, 8, func(c *CPU, mem Memory, _ []uint8) int {
		c.Registers.A = mem.Read(0xFF00 + uint16(c.Registers.C))
		return 8
	})

	// SP-relative.
	define(0xF8, "LD HL,SP+r8", 2, 12, func(c *CPU, _ Memory, args []uint8) int {
		result, f := addSigned8(c.Registers.SP, args[0])
		c.Registers.SetHL(result)
		c.Registers.SetFlags(f)
		return 12
	})
	define(0xF9, "LD SP,HL", 1, 8, func(c *CPU, _ Memory, _ []uint8) int {
		c.Registers.SP = c.Registers.HL()
		return 8
	})

	// Stack.
	for i, p := range pairsAF {
		define(uint8(0xC5+i*16), "PUSH "+p.name, 1, 16, func(c *CPU, mem Memory, _ []uint8) int { //nolint:gosec // G115: bounded by loop
			c.push(mem, p.get(c.Registers))
			return 16
		})
		define(uint8(0xC1+i*16), "POP "+p.name, 1, 12, func(c *CPU, mem Memory, _ []uint8) int { //nolint:gosec // G115: bounded by loop
			p.set(c.Registers, c.pop(mem))
			return 12
		})
	}
}

func defineArithmetic() {
	// INC r / DEC r
	for i, r := range regOrder {
		cycles := 4
		if r == regHLIndirect {
			cycles = 12
		}
		define(uint8(0x04+i*8), fmt.Sprintf("INC %s", r), 1, cycles, func(c *CPU, mem Memory, _ []uint8) int { //nolint:gosec // G115: bounded by loop
			result, f := inc8(c.read8(mem, r), c.Registers.Flags())
			c.write8(mem, r, result)
			c.Registers.SetFlags(f)
			return cycles
		})
		define(uint8(0x05+i*8), fmt.Sprintf("DEC %s", r), 1, cycles, func(c *CPU, mem Memory, _ []uint8) int { //nolint:gosec // G115: bounded by loop
			result, f := dec8(c.read8(mem, r), c.Registers.Flags())
			c.write8(mem, r, result)
			c.Registers.SetFlags(f)
			return cycles
		})
	}

	// 16-bit INC/DEC and ADD HL,rr. No flags for INC/DEC.
	for i, p := range pairsSP {
		define(uint8(0x03+i*16), "INC "+p.name, 1, 8, func(c *CPU, _ Memory, _ []uint8) int { //nolint:gosec // G115: bounded by loop
			p.set(c.Registers, p.get(c.Registers)+1)
			return 8
		})
		define(uint8(0x0B+i*16), "DEC "+p.name, 1, 8, func(c *CPU, _ Memory, _ []uint8) int { //nolint:gosec // G115: bounded by loop
			p.set(c.Registers, p.get(c.Registers)-1)
			return 8
		})
		define(uint8(0x09+i*16), "ADD HL,"+p.name, 1, 8, func(c *CPU, _ Memory, _ []uint8) int { //nolint:gosec // G115: bounded by loop
			result, f := add16(c.Registers.HL(), p.get(c.Registers), c.Registers.Flags())
			c.Registers.SetHL(result)
			c.Registers.SetFlags(f)
			return 8
		})
	}

	define(0xE8, "ADD SP,r8", 2, 16, func(c *CPU, _ Memory, args []uint8) int {
		result, f := addSigned8(c.Registers.SP, args[0])
		c.Registers.SP = result
		c.Registers.SetFlags(f)
		return 16
	})

	// 8-bit ALU block 0x80-0xBF and its immediate forms 0xC6-0xFE.
	ops := [8]struct {
		name    string
		fn      func(c *CPU, v uint8) (uint8, Flags)
		compare bool
	}{
		{"ADD A,", func(c *CPU, v uint8) (uint8, Flags) { return add8(c.Registers.A, v, false) }, false},
		{"ADC A,", func(c *CPU, v uint8) (uint8, Flags) { return add8(c.Registers.A, v, c.Registers.CarryFlag()) }, false},
		{"SUB ", func(c *CPU, v uint8) (uint8, Flags) { return sub8(c.Registers.A, v, false) }, false},
		{"SBC A,", func(c *CPU, v uint8) (uint8, Flags) { return sub8(c.Registers.A, v, c.Registers.CarryFlag()) }, false},
		{"AND ", func(c *CPU, v uint8) (uint8, Flags) { return and8(c.Registers.A, v) }, false},
		{"XOR ", func(c *CPU, v uint8) (uint8, Flags) { return xor8(c.Registers.A, v) }, false},
		{"OR ", func(c *CPU, v uint8) (uint8, Flags) { return or8(c.Registers.A, v) }, false},
		{"CP ", func(c *CPU, v uint8) (uint8, Flags) { return c.Registers.A, cp8(c.Registers.A, v) }, true},
	}
	for i, op := range ops {
		apply := func(c *CPU, v uint8) {
			result, f := op.fn(c, v)
			if !op.compare {
				c.Registers.A = result
			}
			c.Registers.SetFlags(f)
		}
		for j, r := range regOrder {
			cycles := 4
			if r == regHLIndirect {
				cycles = 8
			}
			define(uint8(0x80+i*8+j), op.name+r.String(), 1, cycles, func(c *CPU, mem Memory, _ []uint8) int { //nolint:gosec // G115: bounded by loop
				apply(c, c.read8(mem, r))
				return cycles
			})
		}
		define(uint8(0xC6+i*8), op.name+"d8", 2, 8, func(c *CPU, _ Memory, args []uint8) int { //nolint:gosec // G115: bounded by loop
			apply(c, args[0])
			return 8
		})
	}
}

func defineControlFlow() {
	jr := func(c *CPU, offset uint8) {
		c.Registers.PC += uint16(int16(int8(offset))) //nolint:gosec // G115: sign extension is the point
	}

	define(0x18, "JR r8", 2, 12, func(c *CPU, _ Memory, args []uint8) int {
		jr(c, args[0])
		return 12
	})
	define(0xC3, "JP a16", 3, 16, func(c *CPU, _ Memory, args []uint8) int {
		c.Registers.PC = word(args)
		return 16
	})
	define(0xE9, "JP HL", 1, 4, func(c *CPU, _ Memory, _ []uint8) int {
		c.Registers.PC = c.Registers.HL()
		return 4
	})
	define(0xCD, "CALL a16", 3, 24, func(c *CPU, mem Memory, args []uint8) int {
		c.push(mem, c.Registers.PC)
		c.Registers.PC = word(args)
		return 24
	})
	define(0xC9, "RET", 1, 16, func(c *CPU, mem Memory, _ []uint8) int {
		c.Registers.PC = c.pop(mem)
		return 16
	})
	define(0xD9, "RETI", 1, 16, func(c *CPU, mem Memory, _ []uint8) int {
		c.Registers.PC = c.pop(mem)
		c.IRQ.IME = true
		return 16
	})

	for i, name := range conditionNames {
		cc := uint8(i) //nolint:gosec // G115: bounded by loop
		define(0x20+cc*8, "JR "+name+",r8", 2, 8, func(c *CPU, _ Memory, args []uint8) int {
			if c.condition(cc) {
				jr(c, args[0])
				return 8 + 4
			}
			return 8
		})
		define(0xC2+cc*8, "JP "+name+",a16", 3, 12, func(c *CPU, _ Memory, args []uint8) int {
			if c.condition(cc) {
				c.Registers.PC = word(args)
				return 16
			}
			return 12
		})
		define(0xC4+cc*8, "CALL "+name+",a16", 3, 12, func(c *CPU, mem Memory, args []uint8) int {
			if c.condition(cc) {
				c.push(mem, c.Registers.PC)
				c.Registers.PC = word(args)
				return 24
			}
			return 12
		})
		define(0xC0+cc*8, "RET "+name, 1, 8, func(c *CPU, mem Memory, _ []uint8) int {
			if c.condition(cc) {
				c.Registers.PC = c.pop(mem)
				return 20
			}
			return 8
		})
	}

	for i := 0; i < 8; i++ {
		vector := uint16(i * 8) //nolint:gosec // G115: bounded by loop

		define(uint8(0xC7+i*8), fmt.Sprintf("RST %02XH", vector), 1, 16, func(c *CPU, mem Memory, _ []uint8) int { //nolint:gosec // G115: bounded by loop
			c.push(mem, c.Registers.PC)
			c.Registers.PC = vector
			return 16
		})
	}
}
