package cpu

// ALU helpers. Each one is pure: it takes operands (and the current flags
// where some flags are left untouched) and returns the result together with
// the full new flag set. Callers write both back explicitly.

// add8 performs 8-bit addition with optional carry-in.
func add8(a, b uint8, carryIn bool) (uint8, Flags) {
	var c uint8
	if carryIn {
		c = 1
	}
	result := a + b + c
	return result, Flags{
		Zero:      result == 0,
		HalfCarry: (a&0x0F)+(b&0x0F)+c > 0x0F,
		Carry:     uint16(a)+uint16(b)+uint16(c) > 0xFF,
	}
}

// sub8 performs 8-bit subtraction with optional borrow-in.
func sub8(a, b uint8, carryIn bool) (uint8, Flags) {
	var c uint8
	if carryIn {
		c = 1
	}
	result := a - b - c
	return result, Flags{
		Zero:      result == 0,
		Subtract:  true,
		HalfCarry: uint16(a&0x0F) < uint16(b&0x0F)+uint16(c),
		Carry:     uint16(a) < uint16(b)+uint16(c),
	}
}

// add16 performs ADD HL,rr. Zero is not affected.
func add16(a, b uint16, f Flags) (uint16, Flags) {
	result := a + b
	return result, Flags{
		Zero:      f.Zero,
		HalfCarry: (a&0x0FFF)+(b&0x0FFF) > 0x0FFF,
		Carry:     uint32(a)+uint32(b) > 0xFFFF,
	}
}

// addSigned8 adds a signed byte offset to a 16-bit value (ADD SP,e and
// LD HL,SP+e). Half-carry and carry come from the low byte.
func addSigned8(base uint16, offset uint8) (uint16, Flags) {
	result := base + uint16(int16(int8(offset))) //nolint:gosec // G115: sign extension is the point
	return result, Flags{
		HalfCarry: (base&0x0F)+uint16(offset&0x0F) > 0x0F,
		Carry:     (base&0xFF)+uint16(offset) > 0xFF,
	}
}

// inc8 increments a byte. Carry is not affected.
func inc8(value uint8, f Flags) (uint8, Flags) {
	result := value + 1
	return result, Flags{
		Zero:      result == 0,
		HalfCarry: value&0x0F == 0x0F,
		Carry:     f.Carry,
	}
}

// dec8 decrements a byte. Carry is not affected.
func dec8(value uint8, f Flags) (uint8, Flags) {
	result := value - 1
	return result, Flags{
		Zero:      result == 0,
		Subtract:  true,
		HalfCarry: value&0x0F == 0,
		Carry:     f.Carry,
	}
}

func and8(a, b uint8) (uint8, Flags) {
	result := a & b
	return result, Flags{Zero: result == 0, HalfCarry: true}
}

func or8(a, b uint8) (uint8, Flags) {
	result := a | b
	return result, Flags{Zero: result == 0}
}

func xor8(a, b uint8) (uint8, Flags) {
	result := a ^ b
	return result, Flags{Zero: result == 0}
}

// cp8 compares b against a. Only the flags survive.
func cp8(a, b uint8) Flags {
	_, f := sub8(a, b, false)
	return f
}

// rlc rotates left; bit 7 goes to both carry and bit 0.
func rlc(value uint8) (uint8, Flags) {
	out := value >> 7
	result := value<<1 | out
	return result, Flags{Zero: result == 0, Carry: out == 1}
}

// rl rotates left through carry.
func rl(value uint8, carryIn bool) (uint8, Flags) {
	result := value << 1
	if carryIn {
		result |= 1
	}
	return result, Flags{Zero: result == 0, Carry: value&0x80 != 0}
}

// rrc rotates right; bit 0 goes to both carry and bit 7.
func rrc(value uint8) (uint8, Flags) {
	out := value & 0x01
	result := value>>1 | out<<7
	return result, Flags{Zero: result == 0, Carry: out == 1}
}

// rr rotates right through carry.
func rr(value uint8, carryIn bool) (uint8, Flags) {
	result := value >> 1
	if carryIn {
		result |= 0x80
	}
	return result, Flags{Zero: result == 0, Carry: value&0x01 != 0}
}

func sla(value uint8) (uint8, Flags) {
	result := value << 1
	return result, Flags{Zero: result == 0, Carry: value&0x80 != 0}
}

// sra shifts right keeping the sign bit.
func sra(value uint8) (uint8, Flags) {
	result := value>>1 | value&0x80
	return result, Flags{Zero: result == 0, Carry: value&0x01 != 0}
}

func srl(value uint8) (uint8, Flags) {
	result := value >> 1
	return result, Flags{Zero: result == 0, Carry: value&0x01 != 0}
}

func swap(value uint8) (uint8, Flags) {
	result := value<<4 | value>>4
	return result, Flags{Zero: result == 0}
}

// bit tests bit n of value. Carry is not affected.
func bit(value, n uint8, f Flags) Flags {
	return Flags{
		Zero:      value&(1<<n) == 0,
		HalfCarry: true,
		Carry:     f.Carry,
	}
}

// daa adjusts A to packed BCD after an addition or subtraction.
func daa(a uint8, f Flags) (uint8, Flags) {
	carry := f.Carry
	if !f.Subtract {
		if f.Carry || a > 0x99 {
			a += 0x60
			carry = true
		}
		if f.HalfCarry || a&0x0F > 0x09 {
			a += 0x06
		}
	} else {
		if f.Carry {
			a -= 0x60
		}
		if f.HalfCarry {
			a -= 0x06
		}
	}
	return a, Flags{Zero: a == 0, Subtract: f.Subtract, Carry: carry}
}
