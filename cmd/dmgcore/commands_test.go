package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/dmgcore/internal/cartridge"
	"github.com/richardwooding/dmgcore/internal/cpu"
	"github.com/richardwooding/dmgcore/internal/lcd"
)

type vramMap map[uint16]uint8

func (m vramMap) Load(addr uint16) uint8 { return m[addr] }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// writeROM writes a 32 KiB ROM-only image running program from 0x0100.
func writeROM(t *testing.T, program ...byte) string {
	t.Helper()
	rom := make([]byte, 0x8000)
	copy(rom[0x0100:], program)
	copy(rom[0x0134:], "CLITEST")
	rom[0x014D] = cartridge.HeaderChecksum(rom)

	path := filepath.Join(t.TempDir(), "cli.gb")
	if err := os.WriteFile(path, rom, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInfoCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := &InfoCmd{ROM: writeROM(t)}
	if err := cmd.Run(&out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, want := range []string{"CLITEST", "ROM ONLY", "Controller:     None", "32 KiB (2 banks)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestTraceCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := &TraceCmd{
		ROM:      writeROM(t, 0x00, 0x3E, 0x42, 0x18, 0xFE),
		Steps:    3,
		SkipBoot: true,
	}
	if err := cmd.Run(context.Background(), quietLogger(), &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out.String())
	}
	for i, want := range []string{"0100  NOP", "0101  LD A,$42", "0103  JR -2"} {
		if !strings.HasPrefix(lines[i], want) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], want)
		}
	}
}

func TestTraceStopsOnFailure(t *testing.T) {
	var out bytes.Buffer
	cmd := &TraceCmd{ROM: writeROM(t, 0x00, 0xFD), Steps: 10, SkipBoot: true}

	err := cmd.Run(context.Background(), quietLogger(), &out)
	if !errors.Is(err, cpu.ErrUnimplementedOpcode) {
		t.Fatalf("Run() error = %v, want ErrUnimplementedOpcode", err)
	}
	if !strings.Contains(out.String(), "0101  ???") {
		t.Errorf("trace does not end at the failing opcode:\n%s", out.String())
	}
}

func TestRunCmdRejectsScale(t *testing.T) {
	cmd := &RunCmd{ROM: writeROM(t), Scale: 11}
	if err := cmd.Run(context.Background(), quietLogger()); !errors.Is(err, ErrInvalidScale) {
		t.Errorf("Run() error = %v, want ErrInvalidScale", err)
	}
}

func TestRenderBackground(t *testing.T) {
	vram := vramMap{
		lcd.LCDC: lcd.LCDCEnable | lcd.LCDCBGTileData | lcd.LCDCBGWindowEnable,
		lcd.BGP:  0xE4,
		// Tile 1, first row: colour 3 in the leftmost pixel.
		0x8010: 0x80,
		0x8011: 0x80,
		0x9800: 0x01,
	}
	pixels := make([]byte, lcd.ScreenWidth*lcd.ScreenHeight*4)
	renderBackground(vram, pixels)

	if got := pixels[0]; got != dmgPalette[3].R {
		t.Errorf("pixel (0,0) R = 0x%02X, want 0x%02X", got, dmgPalette[3].R)
	}
	if got := pixels[4]; got != dmgPalette[0].R {
		t.Errorf("pixel (1,0) R = 0x%02X, want 0x%02X", got, dmgPalette[0].R)
	}

	vram[lcd.LCDC] = 0
	renderBackground(vram, pixels)
	if pixels[0] != dmgPalette[0].R {
		t.Error("display off should render white")
	}
}

func TestTileAddr(t *testing.T) {
	tests := []struct {
		lcdc, tile uint8
		want       uint16
	}{
		{lcd.LCDCBGTileData, 0x00, 0x8000},
		{lcd.LCDCBGTileData, 0xFF, 0x8FF0},
		{0, 0x00, 0x9000},
		{0, 0x7F, 0x97F0},
		{0, 0x80, 0x8800},
	}
	for _, tt := range tests {
		if got := tileAddr(tt.lcdc, tt.tile); got != tt.want {
			t.Errorf("tileAddr(0x%02X, 0x%02X) = 0x%04X, want 0x%04X", tt.lcdc, tt.tile, got, tt.want)
		}
	}
}
