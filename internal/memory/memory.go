// Package memory implements the Game Boy memory bus and address space mapping.
//
// The MMU owns one flat 64 KiB array. Most regions are plain storage in that
// array; the cartridge windows are translated through the bank controller,
// the first 256 bytes can be shadowed by the boot program, and a handful of
// I/O registers have side effects on CPU access.
package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/richardwooding/dmgcore/internal/cartridge"
	"github.com/richardwooding/dmgcore/internal/input"
	"github.com/richardwooding/dmgcore/internal/interrupts"
)

// Region boundaries.
const (
	ROMBank0Start  = 0x0000
	ROMBankNStart  = 0x4000
	VRAMStart      = 0x8000
	ExtRAMStart    = 0xA000
	WRAMStart      = 0xC000
	EchoStart      = 0xE000
	OAMStart       = 0xFE00
	UnusableStart  = 0xFEA0
	IOStart        = 0xFF00
	HRAMStart      = 0xFF80
	BootROMSize    = 0x0100
	AddressSpace   = 0x10000
	OAMSize        = 0xA0
	echoMirrorDiff = EchoStart - WRAMStart
)

// I/O registers with side effects.
const (
	P1   = 0xFF00 // Joypad
	SB   = 0xFF01 // Serial transfer data
	SC   = 0xFF02 // Serial transfer control
	DIV  = 0xFF04 // Divider, cleared by any write
	LY   = 0xFF44 // Current scanline, read-only
	DMA  = 0xFF46 // OAM DMA source page
	BOOT = 0xFF50 // Boot overlay disable
)

// ErrAddressOutOfRange is returned for addresses outside the 16-bit space.
var ErrAddressOutOfRange = errors.New("address out of range")

// MMU is the memory management unit.
type MMU struct {
	mem [AddressSpace]uint8

	boot       []byte
	bootActive bool

	cart   *cartridge.Cartridge
	joypad *input.Joypad
	events []input.Event

	serial io.Writer

	divReset func()
}

// Option configures an MMU.
type Option func(*MMU)

// WithBootROM maps a boot program over 0x0000-0x00FF until the program
// writes to 0xFF50.
func WithBootROM(boot []byte) Option {
	return func(m *MMU) {
		if len(boot) > BootROMSize {
			boot = boot[:BootROMSize]
		}
		m.boot = boot
		m.bootActive = len(boot) > 0
	}
}

// WithSerial sends every byte the program transfers over the link port to w.
func WithSerial(w io.Writer) Option {
	return func(m *MMU) {
		m.serial = w
	}
}

// WithDividerReset registers fn to run on every CPU write to DIV. The timer
// uses it to restart its hidden divider.
func WithDividerReset(fn func()) Option {
	return func(m *MMU) {
		m.divReset = fn
	}
}

// New creates an MMU. cart may be nil, in which case the cartridge windows
// behave as plain memory loaded with Store or LoadProgram.
func New(cart *cartridge.Cartridge, opts ...Option) *MMU {
	m := &MMU{
		cart:   cart,
		joypad: input.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.mem[P1] = 0xCF
	return m
}

// Cartridge returns the inserted cartridge, or nil.
func (m *MMU) Cartridge() *cartridge.Cartridge {
	return m.cart
}

// Joypad returns the joypad the MMU applies input events to.
func (m *MMU) Joypad() *input.Joypad {
	return m.joypad
}

// BootActive reports whether the boot overlay still shadows the low ROM.
func (m *MMU) BootActive() bool {
	return m.bootActive
}

// Read reads a byte the way the CPU sees it.
func (m *MMU) Read(addr uint16) uint8 {
	switch {
	case addr < BootROMSize && m.bootActive:
		if int(addr) < len(m.boot) {
			return m.boot[addr]
		}
		return 0xFF

	case addr < ROMBankNStart:
		if m.cart == nil {
			return m.mem[addr]
		}
		lo, _, _ := m.cart.MBC.Offsets()
		return m.cart.ROMAt(lo + int(addr))

	case addr < VRAMStart:
		if m.cart == nil {
			return m.mem[addr]
		}
		_, hi, _ := m.cart.MBC.Offsets()
		return m.cart.ROMAt(hi + int(addr-ROMBankNStart))

	case addr < ExtRAMStart:
		return m.mem[addr]

	case addr < WRAMStart:
		if m.cart == nil {
			return m.mem[addr]
		}
		if !m.cart.MBC.RAMEnabled() {
			return 0xFF
		}
		_, _, ram := m.cart.MBC.Offsets()
		return m.cart.RAMAt(ram + int(addr-ExtRAMStart))

	case addr < EchoStart:
		return m.mem[addr]

	// Echo RAM (E000-FDFF) - Mirror of C000-DDFF
	case addr < OAMStart:
		return m.mem[addr-echoMirrorDiff]

	case addr < UnusableStart:
		return m.mem[addr]

	// Not Usable (FEA0-FEFF)
	case addr < IOStart:
		return 0xFF

	case addr == P1:
		m.DrainInput()
		return m.joypad.Read()

	case addr == interrupts.IF:
		return m.mem[addr] | 0xE0

	default:
		return m.mem[addr]
	}
}

// Write writes a byte the way the CPU does. Stores into the ROM range go to
// the bank controller.
func (m *MMU) Write(addr uint16, value uint8) {
	switch {
	case addr < VRAMStart:
		if m.cart != nil {
			m.cart.MBC.Write(addr, value)
		}

	case addr < ExtRAMStart:
		m.mem[addr] = value

	case addr < WRAMStart:
		if m.cart == nil {
			m.mem[addr] = value
			return
		}
		if !m.cart.MBC.RAMEnabled() {
			return
		}
		_, _, ram := m.cart.MBC.Offsets()
		m.cart.SetRAMAt(ram+int(addr-ExtRAMStart), value)

	case addr < EchoStart:
		m.mem[addr] = value

	case addr < OAMStart:
		m.mem[addr-echoMirrorDiff] = value

	case addr < UnusableStart:
		m.mem[addr] = value

	case addr < IOStart:
		// Ignore writes to unusable memory

	default:
		m.writeIO(addr, value)
	}
}

func (m *MMU) writeIO(addr uint16, value uint8) {
	switch addr {
	case P1:
		m.joypad.Write(value)
		m.mem[addr] = value & 0x30
	case SC:
		m.mem[addr] = value
		if value&0x81 == 0x81 {
			m.transferSerial()
		}
	case DIV:
		m.mem[addr] = 0
		if m.divReset != nil {
			m.divReset()
		}
	case interrupts.IF:
		m.mem[addr] = value & 0x1F
	case LY:
		// Read-only
	case DMA:
		m.mem[addr] = value
		m.transferOAM(value)
	case BOOT:
		m.mem[addr] = value
		if value != 0 {
			m.bootActive = false
		}
	default:
		m.mem[addr] = value
	}
}

// transferSerial completes an internally clocked transfer at once. No link
// partner is attached, so SB shifts in 0xFF.
func (m *MMU) transferSerial() {
	if m.serial != nil {
		_, _ = m.serial.Write([]byte{m.mem[SB]})
	}
	m.mem[SB] = 0xFF
	m.mem[SC] &^= 0x80
	m.mem[interrupts.IF] |= interrupts.Serial.Mask()
}

// transferOAM copies 160 bytes from page<<8 into OAM. The copy is
// instantaneous.
func (m *MMU) transferOAM(page uint8) {
	src := uint16(page) << 8
	for i := uint16(0); i < OAMSize; i++ {
		m.mem[OAMStart+i] = m.Read(src + i)
	}
}

// ReadWord reads two consecutive bytes and composes them in the given order.
func (m *MMU) ReadWord(addr uint16, order binary.ByteOrder) uint16 {
	b := [2]byte{m.Read(addr), m.Read(addr + 1)}
	return order.Uint16(b[:])
}

// WriteWord decomposes value in the given order and writes the two bytes to
// addr and addr+1.
func (m *MMU) WriteWord(addr uint16, value uint16, order binary.ByteOrder) {
	var b [2]byte
	order.PutUint16(b[:], value)
	m.Write(addr, b[0])
	m.Write(addr+1, b[1])
}

// Load reads the backing array directly, bypassing banking and register
// side effects. Peripherals use it for the registers they own.
func (m *MMU) Load(addr uint16) uint8 {
	return m.mem[addr]
}

// Store writes the backing array directly.
func (m *MMU) Store(addr uint16, value uint8) {
	m.mem[addr] = value
}

// LoadProgram copies data into the backing array at addr. With no
// cartridge inserted this is how code reaches the ROM windows.
func (m *MMU) LoadProgram(addr uint16, data []byte) error {
	if int(addr)+len(data) > AddressSpace {
		return fmt.Errorf("%w: %d bytes at 0x%04X", ErrAddressOutOfRange, len(data), addr)
	}
	copy(m.mem[addr:], data)
	return nil
}

// Dump returns n bytes starting at start as the CPU would read them, without
// draining input.
func (m *MMU) Dump(start, n int) ([]byte, error) {
	if start < 0 || n < 0 || start+n > AddressSpace {
		return nil, fmt.Errorf("%w: 0x%X+%d", ErrAddressOutOfRange, start, n)
	}
	out := make([]byte, n)
	for i := range out {
		addr := uint16(start + i) //nolint:gosec // G115: range checked above
		if addr == P1 {
			out[i] = m.joypad.Read()
			continue
		}
		out[i] = m.Read(addr)
	}
	return out, nil
}

// PostInput queues a joypad event. It takes effect the next time the
// program reads P1, or at the next DrainInput.
func (m *MMU) PostInput(e input.Event) {
	m.events = append(m.events, e)
}

// PendingInput returns the number of queued events.
func (m *MMU) PendingInput() int {
	return len(m.events)
}

// DrainInput applies every queued event to the joypad. Each press requests
// the joypad interrupt.
func (m *MMU) DrainInput() {
	for _, e := range m.events {
		if m.joypad.Apply(e) {
			m.mem[interrupts.IF] |= interrupts.Joypad.Mask()
		}
	}
	m.events = m.events[:0]
}
