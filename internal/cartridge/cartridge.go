package cartridge

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash"
)

// Cartridge is a loaded cartridge: the immutable header and ROM image, the
// external RAM, and the bank controller chosen at load time.
type Cartridge struct {
	Header *Header
	ROM    []byte
	RAM    []byte
	MBC    *MBC

	// Fingerprint is the xxhash-64 of the ROM image. It identifies the
	// image in diagnostics and is recorded alongside battery saves.
	Fingerprint uint64
}

var (
	// ErrROMSizeMismatch means the image is shorter than its header declares.
	ErrROMSizeMismatch = fmt.Errorf("%w: ROM size does not match header", ErrInvalidCartridgeHeader)

	// ErrROMTooLarge rejects images past MaxROMSize before any parsing.
	ErrROMTooLarge = errors.New("ROM image too large")

	// ErrSaveTooSmall rejects save data shorter than the cartridge RAM.
	ErrSaveTooSmall = errors.New("save data smaller than cartridge RAM")
)

// MaxROMSize is the largest image any supported controller can address.
const MaxROMSize = 8 << 20

// multicartSize is the only image size MBC1M boards were built with.
const multicartSize = 1 << 20

// New loads a ROM image. The controller is picked from the header type;
// unsupported types fail and nothing is partially built.
func New(rom []byte) (*Cartridge, error) {
	if len(rom) > MaxROMSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrROMTooLarge, len(rom), MaxROMSize)
	}

	header, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	if want := header.GetROMSizeBytes(); len(rom) < want {
		return nil, fmt.Errorf("%w: header declares %d bytes, image has %d", ErrROMSizeMismatch, want, len(rom))
	}

	cartType := CartridgeType(header.CartridgeType)
	kind, err := cartType.Kind()
	if err != nil {
		return nil, err
	}

	ramSize := 0
	if cartType.HasRAM() {
		ramSize = header.GetRAMSizeBytes()
	}

	mbc := NewMBC(kind, header.GetROMBanks(), (ramSize+RAMBankSize-1)/RAMBankSize)
	switch kind {
	case KindMBC1:
		mbc.Multicart = isMulticart(rom)
	case KindMBC3:
		mbc.MBC30 = header.GetRAMSizeBytes() > 64*1024
		mbc.RTC = cartType.HasTimer()
	}

	return &Cartridge{
		Header:      header,
		ROM:         rom[:header.GetROMSizeBytes()],
		RAM:         make([]byte, ramSize),
		MBC:         mbc,
		Fingerprint: xxhash.Sum64(rom),
	}, nil
}

// isMulticart detects MBC1M collections: a 1 MiB image whose bank 0x10
// starts with another copy of the header logo.
func isMulticart(rom []byte) bool {
	return len(rom) == multicartSize && hasLogoAt(rom, 0x10*ROMBankSize)
}

// Type returns the cartridge type byte as a CartridgeType.
func (c *Cartridge) Type() CartridgeType {
	return CartridgeType(c.Header.CartridgeType)
}

// ROMAt returns the ROM byte at offset, wrapping past the end of the image.
func (c *Cartridge) ROMAt(offset int) uint8 {
	if len(c.ROM) == 0 {
		return 0xFF
	}
	return c.ROM[offset%len(c.ROM)]
}

// RAMAt returns the external RAM byte at offset. A cartridge with no RAM
// reads 0xFF.
func (c *Cartridge) RAMAt(offset int) uint8 {
	if len(c.RAM) == 0 {
		return 0xFF
	}
	return c.RAM[offset%len(c.RAM)]
}

// SetRAMAt stores into external RAM at offset.
func (c *Cartridge) SetRAMAt(offset int, value uint8) {
	if len(c.RAM) == 0 {
		return
	}
	c.RAM[offset%len(c.RAM)] = value
}

// HasBattery returns true if the cartridge has battery-backed RAM.
func (c *Cartridge) HasBattery() bool {
	return c.Type().HasBattery()
}

// GetRAM returns a copy of the cartridge RAM for saving.
func (c *Cartridge) GetRAM() []byte {
	if len(c.RAM) == 0 {
		return nil
	}
	ramCopy := make([]byte, len(c.RAM))
	copy(ramCopy, c.RAM)
	return ramCopy
}

// SetRAM loads save data into the cartridge RAM. Bytes past the RAM size,
// such as a clock block other emulators append, are ignored.
func (c *Cartridge) SetRAM(data []byte) error {
	if len(data) < len(c.RAM) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSaveTooSmall, len(data), len(c.RAM))
	}
	copy(c.RAM, data)
	return nil
}

// String describes the cartridge in one line.
func (c *Cartridge) String() string {
	return fmt.Sprintf("%q %s (%s) ROM %d KiB RAM %d KiB xxh64=%016x",
		c.Header.GetTitle(), c.Type(), c.MBC.Kind, len(c.ROM)/1024, len(c.RAM)/1024, c.Fingerprint)
}
