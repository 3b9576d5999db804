package cartridge

import "fmt"

// Bank sizes.
const (
	ROMBankSize = 0x4000 // 16 KiB, one CPU ROM window
	RAMBankSize = 0x2000 // 8 KiB, the external RAM window
)

// Kind is the bank controller variant.
type Kind uint8

// Supported bank controllers.
const (
	KindNone Kind = iota // No banking: 32 KiB mapped straight through
	KindMBC1
	KindMBC3
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindMBC1:
		return "MBC1"
	case KindMBC3:
		return "MBC3"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// MBC is a bank controller. It is a closed variant selected by Kind: every
// method switches on it, and each variant only touches its own registers.
//
// Memory map shared by all variants:
//   - 0x0000-0x3FFF: ROM window 0 ("low")
//   - 0x4000-0x7FFF: ROM window 1 ("high")
//   - 0xA000-0xBFFF: external RAM window
//
// MBC1 control registers (write-only):
//   - 0x0000-0x1FFF: RAM Enable (0x0A in the low nibble enables)
//   - 0x2000-0x3FFF: ROM Bank Number (5 bits)
//   - 0x4000-0x5FFF: RAM Bank Number / ROM Bank Number upper bits (2 bits)
//   - 0x6000-0x7FFF: Banking Mode Select (0 = simple, 1 = advanced)
//
// MBC3 control registers (write-only):
//   - 0x0000-0x1FFF: RAM and RTC Enable
//   - 0x2000-0x3FFF: ROM Bank Number (7 bits, 8 on MBC30)
//   - 0x4000-0x5FFF: RAM Bank Number (0x00-0x07) or RTC register (0x08-0x0C)
//   - 0x6000-0x7FFF: Latch Clock Data
type MBC struct {
	Kind Kind

	ramEnabled bool
	romBank    uint8 // Primary bank register, never 0 after a write
	bank2      uint8 // MBC1 secondary register, MBC3 RAM bank / RTC select
	mode       uint8 // MBC1 banking mode

	// Multicart selects the MBC1M wiring: the secondary register supplies
	// bank bits 4-5 and the primary register is masked to 4 bits.
	Multicart bool
	// MBC30 marks an MBC3 with more than 64 KiB of RAM (8 RAM banks and an
	// 8-bit ROM bank register).
	MBC30 bool
	// RTC marks an MBC3 with a clock. The clock registers read as 0xFF.
	RTC bool

	romBanks int
	ramBanks int
}

// NewMBC creates a controller with default registers for an image of the
// given bank counts.
func NewMBC(kind Kind, romBanks, ramBanks int) *MBC {
	return &MBC{
		Kind:     kind,
		romBank:  1,
		romBanks: romBanks,
		ramBanks: ramBanks,
	}
}

// Write updates the controller registers for a CPU store into 0x0000-0x7FFF.
func (m *MBC) Write(addr uint16, value uint8) {
	switch m.Kind {
	case KindNone:
		return
	case KindMBC1:
		m.writeMBC1(addr, value)
	case KindMBC3:
		m.writeMBC3(addr, value)
	}
}

func (m *MBC) writeMBC1(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case addr < 0x4000:
		m.romBank = value & 0x1F
		// Writing 0 selects bank 1.
		if m.romBank == 0 {
			m.romBank = 1
		}
	case addr < 0x6000:
		m.bank2 = value & 0x03
	case addr < 0x8000:
		m.mode = value & 0x01
	}
}

func (m *MBC) writeMBC3(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case addr < 0x4000:
		if m.MBC30 {
			m.romBank = value
		} else {
			m.romBank = value & 0x7F
		}
		if m.romBank == 0 {
			m.romBank = 1
		}
	case addr < 0x6000:
		m.bank2 = value & 0x0F
	case addr < 0x8000:
		// Clock latch. The clock itself is not modelled.
	}
}

// Offsets returns the byte offsets into the ROM image of the low and high ROM
// windows and the byte offset into the RAM image of the RAM window. It is a
// pure function of the register state.
func (m *MBC) Offsets() (lo, hi, ram int) {
	switch m.Kind {
	case KindMBC1:
		shift, mask := 5, uint8(0x1F)
		if m.Multicart {
			shift, mask = 4, 0x0F
		}
		upper := int(m.bank2) << shift
		hiBank := upper | int(m.romBank&mask)
		loBank, ramBank := 0, 0
		if m.mode == 1 {
			loBank = upper
			ramBank = int(m.bank2)
		}
		return m.wrapROM(loBank) * ROMBankSize, m.wrapROM(hiBank) * ROMBankSize, m.wrapRAM(ramBank) * RAMBankSize
	case KindMBC3:
		ramBank := 0
		if m.bank2 <= 0x07 {
			ramBank = int(m.bank2)
		}
		return 0, m.wrapROM(int(m.romBank)) * ROMBankSize, m.wrapRAM(ramBank) * RAMBankSize
	}
	return 0, ROMBankSize, 0
}

// RAMEnabled reports whether the external RAM window is mapped. Cartridges
// with no controller have no enable gate.
func (m *MBC) RAMEnabled() bool {
	switch m.Kind {
	case KindNone:
		return m.ramBanks > 0
	case KindMBC3:
		return m.ramEnabled && m.bank2 <= 0x07 && m.ramBanks > 0
	}
	return m.ramEnabled && m.ramBanks > 0
}

// ROMBank returns the bank currently mapped in the high ROM window.
func (m *MBC) ROMBank() int {
	_, hi, _ := m.Offsets()
	return hi / ROMBankSize
}

// State returns the raw controller registers for diagnostics.
func (m *MBC) State() map[string]uint8 {
	enabled := uint8(0)
	if m.ramEnabled {
		enabled = 1
	}
	return map[string]uint8{
		"ram_enable": enabled,
		"rom_bank":   m.romBank,
		"bank2":      m.bank2,
		"mode":       m.mode,
	}
}

// Banks are wrapped to the image size. Bank counts are powers of two.
func (m *MBC) wrapROM(bank int) int {
	if m.romBanks > 0 {
		return bank % m.romBanks
	}
	return bank
}

func (m *MBC) wrapRAM(bank int) int {
	if m.ramBanks > 0 {
		return bank % m.ramBanks
	}
	return 0
}
