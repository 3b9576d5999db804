// Package lcd implements the LCD controller's scanline clock.
//
// No pixels are produced. The controller only advances LY through the 154
// lines of a frame, keeps the STAT mode bits and coincidence flag current,
// and raises the VBlank and STAT interrupt requests, which is what programs
// that poll LY or wait for VBlank need to make progress.
package lcd

import "github.com/richardwooding/dmgcore/internal/interrupts"

// Screen dimensions.
const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// Register addresses.
const (
	LCDC = 0xFF40
	STAT = 0xFF41
	SCY  = 0xFF42
	SCX  = 0xFF43
	LY   = 0xFF44
	LYC  = 0xFF45
	BGP  = 0xFF47
)

// Modes, as reported in the low two bits of STAT.
const (
	ModeHBlank  = 0
	ModeVBlank  = 1
	ModeOAMScan = 2
	ModeDrawing = 3
)

// Timing constants, in dots (one dot per CPU cycle).
const (
	DotsPerScanline  = 456
	DotsOAMScan      = 80
	DotsDrawing      = 172
	DotsHBlank       = 204
	ScanlinesVisible = 144
	ScanlinesVBlank  = 10
	ScanlinesTotal   = 154
	DotsPerFrame     = DotsPerScanline * ScanlinesTotal // 70224
)

// LCDC bits.
const (
	LCDCEnable         = 1 << 7
	LCDCWindowTileMap  = 1 << 6
	LCDCWindowEnable   = 1 << 5
	LCDCBGTileData     = 1 << 4
	LCDCBGTileMap      = 1 << 3
	LCDCOBJSize        = 1 << 2
	LCDCOBJEnable      = 1 << 1
	LCDCBGWindowEnable = 1 << 0
)

// STAT bits.
const (
	STATLYCInterrupt   = 1 << 6
	STATMode2Interrupt = 1 << 5
	STATMode1Interrupt = 1 << 4
	STATMode0Interrupt = 1 << 3
	STATLYCFlag        = 1 << 2
	STATModeMask       = 0x03

	statWritable = 0x78
)

// Registers is raw access to the I/O block.
type Registers interface {
	Load(addr uint16) uint8
	Store(addr uint16, value uint8)
}

// Controller tracks the position of the beam within a frame.
type Controller struct {
	dots int
	ly   uint8
	mode uint8

	enabled    bool
	coincident bool

	// Frames counts completed frames since power on.
	Frames uint64
}

// New returns a controller at the start of line 0.
func New() *Controller {
	return &Controller{mode: ModeOAMScan}
}

// LY returns the current scanline.
func (c *Controller) LY() uint8 {
	return c.ly
}

// Mode returns the current STAT mode.
func (c *Controller) Mode() uint8 {
	return c.mode
}

// Step advances the beam by the given number of cycles and writes LY and
// STAT back. It returns true when VBlank was entered during the step.
func (c *Controller) Step(regs Registers, cycles int) bool {
	lcdc := regs.Load(LCDC)
	stat := regs.Load(STAT)

	if lcdc&LCDCEnable == 0 {
		// Switching the display off parks the beam at line 0 in mode 0.
		c.enabled = false
		c.dots = 0
		c.ly = 0
		c.mode = ModeHBlank
		c.coincident = false
		regs.Store(LY, 0)
		regs.Store(STAT, 0x80|stat&statWritable)
		return false
	}
	if !c.enabled {
		c.enabled = true
		c.dots = 0
		c.ly = 0
		c.setMode(regs, stat, ModeOAMScan)
	}

	vblank := false
	c.dots += cycles
	for {
		switch c.mode {
		case ModeOAMScan:
			if c.dots < DotsOAMScan {
				return c.finish(regs, stat, vblank)
			}
			c.dots -= DotsOAMScan
			c.setMode(regs, stat, ModeDrawing)

		case ModeDrawing:
			if c.dots < DotsDrawing {
				return c.finish(regs, stat, vblank)
			}
			c.dots -= DotsDrawing
			c.setMode(regs, stat, ModeHBlank)

		case ModeHBlank:
			if c.dots < DotsHBlank {
				return c.finish(regs, stat, vblank)
			}
			c.dots -= DotsHBlank
			c.nextLine(regs, stat)
			if c.ly == ScanlinesVisible {
				c.setMode(regs, stat, ModeVBlank)
				interrupts.Request(busOf(regs), interrupts.VBlank)
				vblank = true
			} else {
				c.setMode(regs, stat, ModeOAMScan)
			}

		case ModeVBlank:
			if c.dots < DotsPerScanline {
				return c.finish(regs, stat, vblank)
			}
			c.dots -= DotsPerScanline
			c.nextLine(regs, stat)
			if c.ly == 0 {
				c.Frames++
				c.setMode(regs, stat, ModeOAMScan)
			}
		}
	}
}

func (c *Controller) nextLine(regs Registers, stat uint8) {
	c.ly++
	if c.ly == ScanlinesTotal {
		c.ly = 0
	}
	c.compare(regs, stat)
}

// compare updates the coincidence state, requesting STAT on a rising edge.
func (c *Controller) compare(regs Registers, stat uint8) {
	match := c.ly == regs.Load(LYC)
	if match && !c.coincident && stat&STATLYCInterrupt != 0 {
		interrupts.Request(busOf(regs), interrupts.LCDStat)
	}
	c.coincident = match
}

// setMode changes the mode and requests STAT when the matching source is
// selected.
func (c *Controller) setMode(regs Registers, stat, mode uint8) {
	c.mode = mode

	var source uint8
	switch mode {
	case ModeHBlank:
		source = STATMode0Interrupt
	case ModeVBlank:
		source = STATMode1Interrupt
	case ModeOAMScan:
		source = STATMode2Interrupt
	}
	if stat&source != 0 {
		interrupts.Request(busOf(regs), interrupts.LCDStat)
	}
}

func (c *Controller) finish(regs Registers, stat uint8, vblank bool) bool {
	c.compare(regs, stat)

	out := 0x80 | stat&statWritable | c.mode
	if c.coincident {
		out |= STATLYCFlag
	}
	regs.Store(LY, c.ly)
	regs.Store(STAT, out)
	return vblank
}

// rawBus adapts Load/Store to the interrupt helpers' Read/Write.
type rawBus struct{ Registers }

func (b rawBus) Read(addr uint16) uint8         { return b.Load(addr) }
func (b rawBus) Write(addr uint16, value uint8) { b.Store(addr, value) }

func busOf(regs Registers) interrupts.Bus {
	return rawBus{regs}
}
