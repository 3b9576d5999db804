package cpu

import "fmt"

// Flag register bits. Only the upper nibble of F is meaningful.
const (
	FlagZ uint8 = 0b10000000 // Zero flag (bit 7)
	FlagN uint8 = 0b01000000 // Subtraction flag (bit 6)
	FlagH uint8 = 0b00100000 // Half-carry flag (bit 5)
	FlagC uint8 = 0b00010000 // Carry flag (bit 4)
)

// Reg names an 8-bit register slot.
type Reg uint8

// 8-bit registers, numbered the way the opcode encoding numbers them.
// F has no operand encoding and sits after A.
const (
	RegB Reg = iota
	RegC
	RegD
	RegE
	RegH
	RegL
	regHLIndirect // (HL) operand slot, not a register
	RegA
	RegF
)

var regNames = [...]string{"B", "C", "D", "E", "H", "L", "(HL)", "A", "F"}

func (r Reg) String() string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	return fmt.Sprintf("Reg(%d)", uint8(r))
}

// Pair names a 16-bit view over two 8-bit registers.
type Pair uint8

// Register pairs.
const (
	PairAF Pair = iota
	PairBC
	PairDE
	PairHL
)

func (p Pair) String() string {
	switch p {
	case PairAF:
		return "AF"
	case PairBC:
		return "BC"
	case PairDE:
		return "DE"
	case PairHL:
		return "HL"
	}
	return fmt.Sprintf("Pair(%d)", uint8(p))
}

// Flags is the unpacked form of the upper nibble of F.
type Flags struct {
	Zero      bool
	Subtract  bool
	HalfCarry bool
	Carry     bool
}

// Pack encodes the flags into bits 7-4 of a byte.
func (f Flags) Pack() uint8 {
	var v uint8
	if f.Zero {
		v |= FlagZ
	}
	if f.Subtract {
		v |= FlagN
	}
	if f.HalfCarry {
		v |= FlagH
	}
	if f.Carry {
		v |= FlagC
	}
	return v
}

// UnpackFlags decodes bits 7-4 of v.
func UnpackFlags(v uint8) Flags {
	return Flags{
		Zero:      v&FlagZ != 0,
		Subtract:  v&FlagN != 0,
		HalfCarry: v&FlagH != 0,
		Carry:     v&FlagC != 0,
	}
}

func (f Flags) String() string {
	b := []byte("----")
	if f.Zero {
		b[0] = 'Z'
	}
	if f.Subtract {
		b[1] = 'N'
	}
	if f.HalfCarry {
		b[2] = 'H'
	}
	if f.Carry {
		b[3] = 'C'
	}
	return string(b)
}

// Registers represents the SM83 CPU registers.
type Registers struct {
	A  uint8  // Accumulator
	F  uint8  // Flags (only upper 4 bits used)
	B  uint8  // General purpose
	C  uint8  // General purpose
	D  uint8  // General purpose
	E  uint8  // General purpose
	H  uint8  // General purpose (high byte of HL pointer)
	L  uint8  // General purpose (low byte of HL pointer)
	SP uint16 // Stack pointer
	PC uint16 // Program counter
}

// NewRegisters creates a power-on register file: everything zero.
func NewRegisters() *Registers {
	return &Registers{}
}

// SetPostBoot loads the values the DMG boot program leaves behind, for
// callers that skip the boot sequence.
func (r *Registers) SetPostBoot() {
	r.A, r.F = 0x01, 0xB0
	r.B, r.C = 0x00, 0x13
	r.D, r.E = 0x00, 0xD8
	r.H, r.L = 0x01, 0x4D
	r.SP = 0xFFFE
	r.PC = 0x0100
}

// Get returns an 8-bit register. Asking for the (HL) slot or an unknown
// register is a programming error and panics.
func (r *Registers) Get(reg Reg) uint8 {
	return *r.slot(reg)
}

// Set writes an 8-bit register. Writes to F drop the low nibble.
func (r *Registers) Set(reg Reg, value uint8) {
	if reg == RegF {
		value &= 0xF0
	}
	*r.slot(reg) = value
}

func (r *Registers) slot(reg Reg) *uint8 {
	switch reg {
	case RegA:
		return &r.A
	case RegF:
		return &r.F
	case RegB:
		return &r.B
	case RegC:
		return &r.C
	case RegD:
		return &r.D
	case RegE:
		return &r.E
	case RegH:
		return &r.H
	case RegL:
		return &r.L
	}
	panic(fmt.Sprintf("cpu: invalid register access: %s", reg))
}

// Pair returns a 16-bit register pair, high byte first.
func (r *Registers) Pair(p Pair) uint16 {
	switch p {
	case PairAF:
		return r.AF()
	case PairBC:
		return r.BC()
	case PairDE:
		return r.DE()
	case PairHL:
		return r.HL()
	}
	panic(fmt.Sprintf("cpu: invalid register pair access: %s", p))
}

// SetPair writes a 16-bit register pair.
func (r *Registers) SetPair(p Pair, value uint16) {
	switch p {
	case PairAF:
		r.SetAF(value)
	case PairBC:
		r.SetBC(value)
	case PairDE:
		r.SetDE(value)
	case PairHL:
		r.SetHL(value)
	default:
		panic(fmt.Sprintf("cpu: invalid register pair access: %s", p))
	}
}

// AF returns the 16-bit AF register pair.
func (r *Registers) AF() uint16 {
	return uint16(r.A)<<8 | uint16(r.F)
}

// BC returns the 16-bit BC register pair.
func (r *Registers) BC() uint16 {
	return uint16(r.B)<<8 | uint16(r.C)
}

// DE returns the 16-bit DE register pair.
func (r *Registers) DE() uint16 {
	return uint16(r.D)<<8 | uint16(r.E)
}

// HL returns the 16-bit HL register pair.
func (r *Registers) HL() uint16 {
	return uint16(r.H)<<8 | uint16(r.L)
}

// SetAF sets the 16-bit AF register pair.
func (r *Registers) SetAF(value uint16) {
	r.A = uint8(value >> 8)   //nolint:gosec // G115: Intentional byte extraction from 16-bit register
	r.F = uint8(value) & 0xF0 //nolint:gosec // G115: Lower 4 bits always 0
}

// SetBC sets the 16-bit BC register pair.
func (r *Registers) SetBC(value uint16) {
	r.B = uint8(value >> 8) //nolint:gosec // G115: Intentional byte extraction from 16-bit register
	r.C = uint8(value)      //nolint:gosec // G115: Intentional byte extraction from 16-bit register
}

// SetDE sets the 16-bit DE register pair.
func (r *Registers) SetDE(value uint16) {
	r.D = uint8(value >> 8) //nolint:gosec // G115: Intentional byte extraction from 16-bit register
	r.E = uint8(value)      //nolint:gosec // G115: Intentional byte extraction from 16-bit register
}

// SetHL sets the 16-bit HL register pair.
func (r *Registers) SetHL(value uint16) {
	r.H = uint8(value >> 8) //nolint:gosec // G115: Intentional byte extraction from 16-bit register
	r.L = uint8(value)      //nolint:gosec // G115: Intentional byte extraction from 16-bit register
}

// IncPair adds one to a pair, wrapping at 0xFFFF.
func (r *Registers) IncPair(p Pair) {
	r.SetPair(p, r.Pair(p)+1)
}

// DecPair subtracts one from a pair, wrapping at zero.
func (r *Registers) DecPair(p Pair) {
	r.SetPair(p, r.Pair(p)-1)
}

// Flags unpacks F.
func (r *Registers) Flags() Flags {
	return UnpackFlags(r.F)
}

// SetFlags packs f into F.
func (r *Registers) SetFlags(f Flags) {
	r.F = f.Pack()
}

// GetFlag checks if a flag is set.
func (r *Registers) GetFlag(flag uint8) bool {
	return r.F&flag != 0
}

// SetFlagTo sets a flag to a specific boolean value.
func (r *Registers) SetFlagTo(flag uint8, value bool) {
	if value {
		r.F |= flag
	} else {
		r.F &^= flag
	}
}

// ZeroFlag returns the Zero flag state.
func (r *Registers) ZeroFlag() bool {
	return r.GetFlag(FlagZ)
}

// SubtractFlag returns the Subtract flag state.
func (r *Registers) SubtractFlag() bool {
	return r.GetFlag(FlagN)
}

// HalfCarryFlag returns the Half-carry flag state.
func (r *Registers) HalfCarryFlag() bool {
	return r.GetFlag(FlagH)
}

// CarryFlag returns the Carry flag state.
func (r *Registers) CarryFlag() bool {
	return r.GetFlag(FlagC)
}

func (r *Registers) String() string {
	return fmt.Sprintf("AF=%04X BC=%04X DE=%04X HL=%04X SP=%04X PC=%04X [%s]",
		r.AF(), r.BC(), r.DE(), r.HL(), r.SP, r.PC, r.Flags())
}
