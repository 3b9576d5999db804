// Package cartridge implements Game Boy cartridge loading and the bank
// controllers that map a large ROM/RAM image into the CPU's fixed windows.
package cartridge

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Header layout.
const (
	HeaderStart = 0x0100
	HeaderEnd   = 0x0150

	logoOffset     = 0x0104
	checksumStart  = 0x0134
	checksumEnd    = 0x014C
	globalChecksum = 0x014E
)

// nintendoLogo is the bitmap every licensed cartridge carries at 0x0104.
var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
	0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
	0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Header is the cartridge header at 0x0100-0x014F. The field order and
// sizes match the image byte for byte, so it decodes with binary.Read.
type Header struct {
	EntryPoint   [4]byte
	NintendoLogo [48]byte

	// Title is 15 bytes on colour-aware cartridges. Older ones use the CGB
	// flag byte as a sixteenth title character.
	Title   [15]byte
	CGBFlag byte

	NewLicenseeCode [2]byte
	SGBFlag         byte
	CartridgeType   byte

	// ROMSize is log2 of the size in 32 KiB units. RAMSize indexes a
	// fixed table, see GetRAMSizeBytes.
	ROMSize byte
	RAMSize byte

	DestinationCode byte
	OldLicenseeCode byte
	MaskROMVersion  byte
	HeaderChecksum  byte
	GlobalChecksum  uint16 // big-endian, unlike everything else
}

// CartridgeType is the hardware code at 0x0147.
//
//nolint:revive // CartridgeType is intentionally explicit for clarity
type CartridgeType byte

// Cartridge types as defined in the header at 0x0147.
const (
	TypeROMOnly                    CartridgeType = 0x00
	TypeMBC1                       CartridgeType = 0x01
	TypeMBC1RAM                    CartridgeType = 0x02
	TypeMBC1RAMBattery             CartridgeType = 0x03
	TypeMBC2                       CartridgeType = 0x05
	TypeMBC2Battery                CartridgeType = 0x06
	TypeROMRAM                     CartridgeType = 0x08
	TypeROMRAMBattery              CartridgeType = 0x09
	TypeMMM01                      CartridgeType = 0x0B
	TypeMMM01RAM                   CartridgeType = 0x0C
	TypeMMM01RAMBattery            CartridgeType = 0x0D
	TypeMBC3TimerBattery           CartridgeType = 0x0F
	TypeMBC3TimerRAMBattery        CartridgeType = 0x10
	TypeMBC3                       CartridgeType = 0x11
	TypeMBC3RAM                    CartridgeType = 0x12
	TypeMBC3RAMBattery             CartridgeType = 0x13
	TypeMBC5                       CartridgeType = 0x19
	TypeMBC5RAM                    CartridgeType = 0x1A
	TypeMBC5RAMBattery             CartridgeType = 0x1B
	TypeMBC5Rumble                 CartridgeType = 0x1C
	TypeMBC5RumbleRAM              CartridgeType = 0x1D
	TypeMBC5RumbleRAMBattery       CartridgeType = 0x1E
	TypeMBC6                       CartridgeType = 0x20
	TypeMBC7SensorRumbleRAMBattery CartridgeType = 0x22
	TypePocketCamera               CartridgeType = 0xFC
	TypeBandaiTAMA5                CartridgeType = 0xFD
	TypeHuC3                       CartridgeType = 0xFE
	TypeHuC1RAMBattery             CartridgeType = 0xFF
)

// Board features. A type's name is its controller followed by its
// features, joined with '+'.
type feature uint8

const (
	featRAM feature = 1 << iota
	featBattery
	featTimer
	featRumble
	featSensor
)

type typeInfo struct {
	board     string
	features  feature
	kind      Kind
	supported bool
}

var cartridgeTypes = map[CartridgeType]typeInfo{
	TypeROMOnly:                    {"ROM ONLY", 0, KindNone, true},
	TypeROMRAM:                     {"ROM", featRAM, KindNone, true},
	TypeROMRAMBattery:              {"ROM", featRAM | featBattery, KindNone, true},
	TypeMBC1:                       {"MBC1", 0, KindMBC1, true},
	TypeMBC1RAM:                    {"MBC1", featRAM, KindMBC1, true},
	TypeMBC1RAMBattery:             {"MBC1", featRAM | featBattery, KindMBC1, true},
	TypeMBC2:                       {"MBC2", featRAM, 0, false},
	TypeMBC2Battery:                {"MBC2", featRAM | featBattery, 0, false},
	TypeMMM01:                      {"MMM01", 0, 0, false},
	TypeMMM01RAM:                   {"MMM01", featRAM, 0, false},
	TypeMMM01RAMBattery:            {"MMM01", featRAM | featBattery, 0, false},
	TypeMBC3TimerBattery:           {"MBC3", featTimer | featBattery, KindMBC3, true},
	TypeMBC3TimerRAMBattery:        {"MBC3", featTimer | featRAM | featBattery, KindMBC3, true},
	TypeMBC3:                       {"MBC3", 0, KindMBC3, true},
	TypeMBC3RAM:                    {"MBC3", featRAM, KindMBC3, true},
	TypeMBC3RAMBattery:             {"MBC3", featRAM | featBattery, KindMBC3, true},
	TypeMBC5:                       {"MBC5", 0, 0, false},
	TypeMBC5RAM:                    {"MBC5", featRAM, 0, false},
	TypeMBC5RAMBattery:             {"MBC5", featRAM | featBattery, 0, false},
	TypeMBC5Rumble:                 {"MBC5", featRumble, 0, false},
	TypeMBC5RumbleRAM:              {"MBC5", featRumble | featRAM, 0, false},
	TypeMBC5RumbleRAMBattery:       {"MBC5", featRumble | featRAM | featBattery, 0, false},
	TypeMBC6:                       {"MBC6", 0, 0, false},
	TypeMBC7SensorRumbleRAMBattery: {"MBC7", featSensor | featRumble | featRAM | featBattery, 0, false},
	TypePocketCamera:               {"POCKET CAMERA", 0, 0, false},
	TypeBandaiTAMA5:                {"BANDAI TAMA5", 0, 0, false},
	TypeHuC3:                       {"HuC3", 0, 0, false},
	TypeHuC1RAMBattery:             {"HuC1", featRAM | featBattery, 0, false},
}

var featureNames = []struct {
	f    feature
	name string
}{
	{featTimer, "TIMER"},
	{featSensor, "SENSOR"},
	{featRumble, "RUMBLE"},
	{featRAM, "RAM"},
	{featBattery, "BATTERY"},
}

// String returns the conventional name of the type, e.g. "MBC1+RAM+BATTERY".
func (t CartridgeType) String() string {
	info, ok := cartridgeTypes[t]
	if !ok {
		return fmt.Sprintf("UNKNOWN (0x%02X)", byte(t))
	}
	name := info.board
	for _, fn := range featureNames {
		if info.features&fn.f != 0 {
			name += "+" + fn.name
		}
	}
	return name
}

// HasRAM reports whether the board carries external RAM. MBC2's RAM is
// built into the controller but counts.
func (t CartridgeType) HasRAM() bool {
	return cartridgeTypes[t].features&featRAM != 0
}

// HasBattery reports whether the board keeps its RAM (or clock) powered.
func (t CartridgeType) HasBattery() bool {
	return cartridgeTypes[t].features&featBattery != 0
}

// HasTimer reports whether the type declares an MBC3 real-time clock.
func (t CartridgeType) HasTimer() bool {
	return cartridgeTypes[t].features&featTimer != 0
}

// Kind returns the bank controller variant for the type. Types with no
// supported controller return ErrInvalidCartridgeType.
func (t CartridgeType) Kind() (Kind, error) {
	info := cartridgeTypes[t]
	if !info.supported {
		return 0, fmt.Errorf("%w: type 0x%02X (%s)", ErrInvalidCartridgeType, byte(t), t)
	}
	return info.kind, nil
}

// ramSizesKiB is indexed by the RAM size code at 0x0149.
var ramSizesKiB = [...]int{0, 2, 8, 32, 128, 64}

// maxROMSizeCode is the 8 MiB code.
const maxROMSizeCode = 0x08

// GetROMBanks returns the number of 16 KiB ROM banks declared by the
// header, or 0 for an unknown code.
func (h *Header) GetROMBanks() int {
	if h.ROMSize > maxROMSizeCode {
		return 0
	}
	return 2 << h.ROMSize
}

// GetROMSizeBytes returns the total ROM size in bytes.
func (h *Header) GetROMSizeBytes() int {
	return h.GetROMBanks() * ROMBankSize
}

// GetRAMSizeBytes returns the declared external RAM size in bytes, or 0 for
// an unknown code.
func (h *Header) GetRAMSizeBytes() int {
	if int(h.RAMSize) >= len(ramSizesKiB) {
		return 0
	}
	return ramSizesKiB[h.RAMSize] << 10
}

// GetRAMBanks returns the number of 8 KiB RAM banks. The 2 KiB size still
// occupies one (partial) bank.
func (h *Header) GetRAMBanks() int {
	return (h.GetRAMSizeBytes() + RAMBankSize - 1) / RAMBankSize
}

// GetTitle returns the title up to the first NUL. Cartridges without a CGB
// flag get the flag byte as their last character.
func (h *Header) GetTitle() string {
	title := h.Title[:]
	if h.CGBFlag&0x80 == 0 {
		title = append(title[:len(title):len(title)], h.CGBFlag)
	}
	if i := bytes.IndexByte(title, 0); i >= 0 {
		title = title[:i]
	}
	return string(title)
}

// ManufacturerCode returns the four bytes newer cartridges keep at the end
// of the title field.
func (h *Header) ManufacturerCode() [4]byte {
	var code [4]byte
	copy(code[:], h.Title[11:])
	return code
}

// LogoValid reports whether the header carries the boot logo.
func (h *Header) LogoValid() bool {
	return h.NintendoLogo == nintendoLogo
}

var (
	// ErrInvalidCartridgeHeader is the parent of every header validation error.
	ErrInvalidCartridgeHeader = errors.New("invalid cartridge header")

	// ErrInvalidROMSize indicates the image is too small to hold a header,
	// or the ROM size code is unknown.
	ErrInvalidROMSize = fmt.Errorf("%w: bad ROM size", ErrInvalidCartridgeHeader)

	// ErrInvalidRAMSize indicates an unknown RAM size code.
	ErrInvalidRAMSize = fmt.Errorf("%w: bad RAM size", ErrInvalidCartridgeHeader)

	// ErrInvalidHeaderChecksum indicates the header checksum is invalid.
	ErrInvalidHeaderChecksum = fmt.Errorf("%w: checksum mismatch", ErrInvalidCartridgeHeader)

	// ErrInvalidCartridgeType indicates an unsupported or unknown cartridge type.
	ErrInvalidCartridgeType = fmt.Errorf("%w: unsupported cartridge type", ErrInvalidCartridgeHeader)
)

// ParseHeader decodes and validates the header of a ROM image.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < HeaderEnd {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrInvalidROMSize, len(rom), HeaderEnd)
	}

	h := &Header{}
	if err := binary.Read(bytes.NewReader(rom[HeaderStart:HeaderEnd]), binary.BigEndian, h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCartridgeHeader, err)
	}

	switch {
	case !h.VerifyHeaderChecksum(rom):
		return nil, fmt.Errorf("%w: header says 0x%02X", ErrInvalidHeaderChecksum, h.HeaderChecksum)
	case h.GetROMBanks() == 0:
		return nil, fmt.Errorf("%w: code 0x%02X", ErrInvalidROMSize, h.ROMSize)
	case int(h.RAMSize) >= len(ramSizesKiB):
		return nil, fmt.Errorf("%w: code 0x%02X", ErrInvalidRAMSize, h.RAMSize)
	}
	return h, nil
}

// HeaderChecksum computes the boot-time checksum over 0x0134-0x014C:
// x = x - b - 1 for every byte.
func HeaderChecksum(rom []byte) byte {
	var sum byte
	for _, b := range rom[checksumStart : checksumEnd+1] {
		sum = sum - b - 1
	}
	return sum
}

// VerifyHeaderChecksum verifies the header checksum.
func (h *Header) VerifyHeaderChecksum(rom []byte) bool {
	return HeaderChecksum(rom) == h.HeaderChecksum
}

// VerifyGlobalChecksum checks the 16-bit sum of every byte except the
// checksum itself. Hardware never checks it and many commercial images get
// it wrong, so it is informational only.
func (h *Header) VerifyGlobalChecksum(rom []byte) bool {
	var sum uint16
	for i, b := range rom {
		if i != globalChecksum && i != globalChecksum+1 {
			sum += uint16(b)
		}
	}
	return sum == h.GlobalChecksum
}

// hasLogoAt reports whether a copy of the boot logo sits in the bank that
// starts at offset. MBC1 multicarts repeat the header in every game's bank 0.
func hasLogoAt(rom []byte, offset int) bool {
	start := offset + logoOffset
	if start+len(nintendoLogo) > len(rom) {
		return false
	}
	return bytes.Equal(rom[start:start+len(nintendoLogo)], nintendoLogo[:])
}
