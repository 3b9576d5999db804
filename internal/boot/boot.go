// Package boot provides the built-in boot program.
//
// The program is mapped over 0x0000-0x00FF at power on. It sets up the
// stack, clears video RAM, switches the display on, loads the register
// values cartridges expect and unmaps itself by writing to 0xFF50 from the
// last two bytes of the overlay, so execution falls through to 0x0100.
package boot

// Size is the size of the boot overlay.
const Size = 0x100

// EntryPoint is where the cartridge takes over.
const EntryPoint = 0x0100

var prologue = []byte{
	0x31, 0xFE, 0xFF, // LD SP,$FFFE
	0xAF,             // XOR A
	0x21, 0xFF, 0x9F, // LD HL,$9FFF
	0x32,       // LD (HL-),A
	0xCB, 0x7C, // BIT 7,H
	0x20, 0xFB, // JR NZ,-5
	0x3E, 0x91, // LD A,$91
	0xE0, 0x40, // LDH ($40),A
	0x21, 0xB0, 0x01, // LD HL,$01B0
	0xE5,             // PUSH HL
	0xF1,             // POP AF
	0x01, 0x13, 0x00, // LD BC,$0013
	0x11, 0xD8, 0x00, // LD DE,$00D8
	0x21, 0x4D, 0x01, // LD HL,$014D
}

var epilogue = []byte{
	0xE0, 0x50, // LDH ($50),A
}

// Program returns a fresh copy of the boot program. The gap between the
// setup code and the unmap instruction is filled with NOPs.
func Program() []byte {
	p := make([]byte, Size)
	copy(p, prologue)
	copy(p[Size-len(epilogue):], epilogue)
	return p
}
