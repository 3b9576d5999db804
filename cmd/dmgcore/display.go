package main

import (
	"context"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"github.com/richardwooding/dmgcore/internal/diag"
	"github.com/richardwooding/dmgcore/internal/emulator"
	"github.com/richardwooding/dmgcore/internal/input"
	"github.com/richardwooding/dmgcore/internal/lcd"
)

// DMG palette colors (classic Game Boy green tones).
var dmgPalette = [4]color.RGBA{
	{0xE0, 0xF8, 0xD0, 0xFF}, // White (lightest)
	{0x88, 0xC0, 0x70, 0xFF}, // Light gray
	{0x34, 0x68, 0x56, 0xFF}, // Dark gray
	{0x08, 0x18, 0x20, 0xFF}, // Black (darkest)
}

// keyMap maps keyboard keys to Game Boy buttons.
var keyMap = []struct {
	key    ebiten.Key
	button input.Key
}{
	{ebiten.KeyArrowUp, input.KeyUp},
	{ebiten.KeyArrowDown, input.KeyDown},
	{ebiten.KeyArrowLeft, input.KeyLeft},
	{ebiten.KeyArrowRight, input.KeyRight},
	{ebiten.KeyZ, input.KeyA},
	{ebiten.KeyX, input.KeyB},
	{ebiten.KeyEnter, input.KeyStart},
	{ebiten.KeyShift, input.KeySelect},
}

// Display implements the Ebiten game interface. It pumps one frame per
// tick and shows the background tile map at the current scroll position,
// decoded straight from video RAM.
type Display struct {
	ctx      context.Context
	emulator *emulator.Emulator
	dumpPath string

	screen  *ebiten.Image
	pixels  []byte // Pre-allocated pixel buffer to avoid GC pressure
	face    text.Face
	overlay bool
}

// NewDisplay creates a new display for the emulator.
func NewDisplay(ctx context.Context, emu *emulator.Emulator, dumpPath string) *Display {
	return &Display{
		ctx:      ctx,
		emulator: emu,
		dumpPath: dumpPath,
		screen:   ebiten.NewImage(lcd.ScreenWidth, lcd.ScreenHeight),
		pixels:   make([]byte, lcd.ScreenWidth*lcd.ScreenHeight*4),
		face:     text.NewGoXFace(basicfont.Face7x13),
	}
}

// Update runs one frame worth of cycles. Ebiten calls it 60 times per
// second, close to the hardware's 59.73 Hz.
func (d *Display) Update() error {
	if d.ctx.Err() != nil || ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		d.overlay = !d.overlay
	}

	d.handleInput()

	if err := d.emulator.RunFrame(); err != nil {
		if d.dumpPath != "" {
			if derr := diag.WriteFile(d.dumpPath, d.emulator); derr != nil {
				d.emulator.Logger().WithError(derr).Error("failed to write dump")
			} else {
				d.emulator.Logger().WithField("path", d.dumpPath).Info("dump written")
			}
		}
		return err
	}
	return nil
}

// handleInput posts an event for every key that changed since the last tick.
func (d *Display) handleInput() {
	for _, m := range keyMap {
		switch {
		case inpututil.IsKeyJustPressed(m.key):
			d.emulator.Press(m.button)
		case inpututil.IsKeyJustReleased(m.key):
			d.emulator.Release(m.button)
		}
	}
}

// Draw draws the game screen.
func (d *Display) Draw(screen *ebiten.Image) {
	renderBackground(d.emulator.MMU, d.pixels)
	d.screen.WritePixels(d.pixels)
	screen.DrawImage(d.screen, nil)

	if d.overlay {
		r := d.emulator.CPU.Registers
		msg := fmt.Sprintf("PC %04X SP %04X\nAF %04X BC %04X\nDE %04X HL %04X\nLY %3d  F %d",
			r.PC, r.SP, r.AF(), r.BC(), r.DE(), r.HL(),
			d.emulator.MMU.Load(lcd.LY), d.emulator.Frames())
		op := &text.DrawOptions{}
		op.GeoM.Translate(2, 2)
		op.ColorScale.ScaleWithColor(dmgPalette[3])
		op.LineSpacing = 13
		text.Draw(screen, msg, d.face, op)
	}
}

// Layout returns the game screen size.
func (d *Display) Layout(_, _ int) (int, int) {
	return lcd.ScreenWidth, lcd.ScreenHeight
}

// VRAM is the raw video memory the background view decodes.
type VRAM interface {
	Load(addr uint16) uint8
}

// renderBackground decodes the visible window of the background tile map
// into RGBA pixels. A display that is switched off shows as white.
func renderBackground(vram VRAM, pixels []byte) {
	lcdc := vram.Load(lcd.LCDC)
	if lcdc&lcd.LCDCEnable == 0 || lcdc&lcd.LCDCBGWindowEnable == 0 {
		for i := 0; i < len(pixels); i += 4 {
			c := dmgPalette[0]
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = c.R, c.G, c.B, c.A
		}
		return
	}

	mapBase := uint16(0x9800)
	if lcdc&lcd.LCDCBGTileMap != 0 {
		mapBase = 0x9C00
	}
	scy, scx := vram.Load(lcd.SCY), vram.Load(lcd.SCX)
	bgp := vram.Load(lcd.BGP)

	for y := 0; y < lcd.ScreenHeight; y++ {
		by := uint8(y) + scy //nolint:gosec // G115: y < 144
		for x := 0; x < lcd.ScreenWidth; x++ {
			bx := uint8(x) + scx //nolint:gosec // G115: x < 160

			tile := vram.Load(mapBase + uint16(by/8)*32 + uint16(bx/8))
			row := tileAddr(lcdc, tile) + uint16(by%8)*2
			lo, hi := vram.Load(row), vram.Load(row+1)
			shift := 7 - bx%8
			idx := (hi>>shift&1)<<1 | lo>>shift&1

			c := dmgPalette[bgp>>(idx*2)&3]
			o := (y*lcd.ScreenWidth + x) * 4
			pixels[o], pixels[o+1], pixels[o+2], pixels[o+3] = c.R, c.G, c.B, c.A
		}
	}
}

// tileAddr returns the address of a tile's data. LCDC bit 4 selects
// unsigned indexing from 0x8000 or signed indexing around 0x9000.
func tileAddr(lcdc, tile uint8) uint16 {
	if lcdc&lcd.LCDCBGTileData != 0 {
		return 0x8000 + uint16(tile)*16
	}
	return uint16(0x9000 + int(int8(tile))*16) //nolint:gosec // G115: result is within VRAM
}
