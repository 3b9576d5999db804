package emulator

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/dmgcore/internal/interrupts"
	"github.com/richardwooding/dmgcore/internal/lcd"
	"github.com/richardwooding/dmgcore/internal/timer"
)

// Snapshot is the machine state reported when emulation stops.
type Snapshot struct {
	PC     uint16 `json:"pc"`
	SP     uint16 `json:"sp"`
	AF     uint16 `json:"af"`
	BC     uint16 `json:"bc"`
	DE     uint16 `json:"de"`
	HL     uint16 `json:"hl"`
	Flags  string `json:"flags"`
	Opcode string `json:"opcode,omitempty"`

	IME     bool   `json:"ime"`
	Halted  bool   `json:"halted"`
	Stopped bool   `json:"stopped"`
	Cycles  uint64 `json:"cycles"`
	Frames  uint64 `json:"frames"`

	IE   uint8 `json:"ie"`
	IF   uint8 `json:"if"`
	DIV  uint8 `json:"div"`
	TIMA uint8 `json:"tima"`
	TMA  uint8 `json:"tma"`
	TAC  uint8 `json:"tac"`
	LCDC uint8 `json:"lcdc"`
	STAT uint8 `json:"stat"`
	LY   uint8 `json:"ly"`

	Cartridge string           `json:"cartridge,omitempty"`
	MBC       map[string]uint8 `json:"mbc,omitempty"`
}

// Snapshot captures the current state.
func (e *Emulator) Snapshot() Snapshot {
	r := e.CPU.Registers
	s := Snapshot{
		PC:      r.PC,
		SP:      r.SP,
		AF:      r.AF(),
		BC:      r.BC(),
		DE:      r.DE(),
		HL:      r.HL(),
		Flags:   r.Flags().String(),
		IME:     e.CPU.IRQ.IME,
		Halted:  e.CPU.Halted(),
		Stopped: e.CPU.Stopped(),
		Cycles:  e.CPU.Cycles,
		Frames:  e.frames,
		IE:      e.MMU.Load(interrupts.IE),
		IF:      e.MMU.Load(interrupts.IF) | 0xE0,
		DIV:     e.MMU.Load(timer.DIV),
		TIMA:    e.MMU.Load(timer.TIMA),
		TMA:     e.MMU.Load(timer.TMA),
		TAC:     e.MMU.Load(timer.TAC),
		LCDC:    e.MMU.Load(lcd.LCDC),
		STAT:    e.MMU.Load(lcd.STAT),
		LY:      e.MMU.Load(lcd.LY),
	}
	if e.Cart != nil {
		s.Cartridge = e.Cart.String()
		s.MBC = e.Cart.MBC.State()
	}
	return s
}

// Fields renders the snapshot for structured logging.
func (s Snapshot) Fields() logrus.Fields {
	f := logrus.Fields{
		"pc":     fmt.Sprintf("0x%04X", s.PC),
		"sp":     fmt.Sprintf("0x%04X", s.SP),
		"af":     fmt.Sprintf("0x%04X", s.AF),
		"bc":     fmt.Sprintf("0x%04X", s.BC),
		"de":     fmt.Sprintf("0x%04X", s.DE),
		"hl":     fmt.Sprintf("0x%04X", s.HL),
		"flags":  s.Flags,
		"ime":    s.IME,
		"halted": s.Halted,
		"cycles": s.Cycles,
		"ie":     fmt.Sprintf("0x%02X", s.IE),
		"if":     fmt.Sprintf("0x%02X", s.IF),
		"div":    fmt.Sprintf("0x%02X", s.DIV),
		"tima":   fmt.Sprintf("0x%02X", s.TIMA),
		"tma":    fmt.Sprintf("0x%02X", s.TMA),
		"tac":    fmt.Sprintf("0x%02X", s.TAC),
		"ly":     s.LY,
	}
	if s.Opcode != "" {
		f["opcode"] = s.Opcode
	}
	if s.Cartridge != "" {
		f["cartridge"] = s.Cartridge
	}
	return f
}
