package emulator

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/dmgcore/internal/cartridge"
	"github.com/richardwooding/dmgcore/internal/cpu"
	"github.com/richardwooding/dmgcore/internal/input"
	"github.com/richardwooding/dmgcore/internal/timer"
)

// setupEmulator creates a cartridge-less emulator past the boot sequence
// with program loaded at 0x0100.
func setupEmulator(t *testing.T, program []byte, opts ...Option) (*Emulator, *bytes.Buffer) {
	t.Helper()

	var logs bytes.Buffer
	l := logrus.New()
	l.SetOutput(&logs)
	opts = append([]Option{WithLogger(l)}, opts...)

	e := New(nil, true, opts...)
	if err := e.MMU.LoadProgram(0x0100, program); err != nil {
		t.Fatalf("LoadProgram() error = %v", err)
	}
	return e, &logs
}

// serialProgram prints s over the link port and then spins.
func serialProgram(s string) []byte {
	var p []byte
	for i := 0; i < len(s); i++ {
		p = append(p,
			0x3E, s[i], // LD A,c
			0xE0, 0x01, // LDH ($01),A
			0x3E, 0x81, // LD A,$81
			0xE0, 0x02, // LDH ($02),A
		)
	}
	return append(p, 0x18, 0xFE) // JR -2
}

func TestNewSkipBoot(t *testing.T) {
	e, _ := setupEmulator(t, nil)

	want := cpu.NewRegisters()
	want.SetPostBoot()
	if *e.CPU.Registers != *want {
		t.Errorf("registers = %v, want %v", e.CPU.Registers, want)
	}
	if e.MMU.BootActive() {
		t.Error("boot overlay mapped after skipping boot")
	}
	if got := e.MMU.Read(0xFF40); got != 0x91 {
		t.Errorf("LCDC = 0x%02X, want 0x91", got)
	}
	if got := e.MMU.Read(0xFF0F); got != 0xE1 {
		t.Errorf("IF = 0x%02X, want 0xE1", got)
	}
}

func TestBootSequence(t *testing.T) {
	var logs bytes.Buffer
	l := logrus.New()
	l.SetOutput(&logs)

	e := New(nil, false, WithLogger(l))
	if err := e.MMU.LoadProgram(0x0100, []byte{0x18, 0xFE}); err != nil {
		t.Fatalf("LoadProgram() error = %v", err)
	}
	if e.CPU.Registers.PC != 0 {
		t.Fatalf("PC = 0x%04X, want 0x0000", e.CPU.Registers.PC)
	}

	if err := e.RunFrames(context.Background(), 10); err != nil {
		t.Fatalf("RunFrames() error = %v", err)
	}

	if e.MMU.BootActive() {
		t.Error("boot overlay still mapped")
	}
	if e.CPU.Registers.PC != 0x0100 {
		t.Errorf("PC = 0x%04X, want 0x0100", e.CPU.Registers.PC)
	}
	if e.CPU.Registers.AF() != 0x01B0 {
		t.Errorf("AF = 0x%04X, want 0x01B0", e.CPU.Registers.AF())
	}
}

func TestUnimplementedOpcodeIsFatal(t *testing.T) {
	e, logs := setupEmulator(t, []byte{0x00, 0xD3})

	if _, err := e.Step(); err != nil {
		t.Fatalf("NOP error = %v", err)
	}
	_, err := e.Step()
	if !errors.Is(err, ErrFatal) {
		t.Fatalf("error = %v, want ErrFatal", err)
	}
	if !errors.Is(err, cpu.ErrUnimplementedOpcode) {
		t.Errorf("error = %v, want it to wrap ErrUnimplementedOpcode", err)
	}

	crash := e.Crash()
	if crash == nil {
		t.Fatal("Crash() = nil")
	}
	if crash.PC != 0x0101 || crash.Opcode != "D3" {
		t.Errorf("crash at %04X opcode %q, want 0101 \"D3\"", crash.PC, crash.Opcode)
	}
	if !strings.Contains(logs.String(), "emulation stopped") {
		t.Errorf("log = %q, want failure entry", logs.String())
	}
	if !strings.Contains(logs.String(), "pc=0x0101") {
		t.Errorf("log = %q, want pc field", logs.String())
	}

	if _, again := e.Step(); again != err {
		t.Errorf("second Step() error = %v, want the same failure", again)
	}
	if err := e.RunFrame(); !errors.Is(err, ErrFatal) {
		t.Errorf("RunFrame() error = %v, want ErrFatal", err)
	}
}

func TestTimerInterruptServiced(t *testing.T) {
	program := []byte{
		0x3E, 0x04, // LD A,$04
		0xE0, 0xFF, // LDH ($FF),A   IE = timer
		0x3E, 0x05, // LD A,$05
		0xE0, 0x07, // LDH ($07),A   TAC = enabled, 16 cycles
		0xAF,       // XOR A
		0xE0, 0x0F, // LDH ($0F),A   IF = 0
		0xFB,       // EI
		0x76,       // HALT
		0x18, 0xFD, // JR -3
	}
	e, _ := setupEmulator(t, program)
	if err := e.MMU.LoadProgram(0x0050, []byte{0x3C, 0xD9}); err != nil { // INC A; RETI
		t.Fatalf("LoadProgram() error = %v", err)
	}

	if _, err := e.RunCycles(4 * 256 * 16); err != nil {
		t.Fatalf("RunCycles() error = %v", err)
	}

	if e.CPU.Registers.A == 0 {
		t.Error("timer handler never ran")
	}
	if !e.CPU.IRQ.IME {
		t.Error("IME clear after RETI")
	}
}

func TestDIVWriteRestartsDivider(t *testing.T) {
	// Two DIV writes 212 cycles apart: the second lands while DIV reads 0.
	program := []byte{0xE0, 0x04}                  // LDH ($04),A
	program = append(program, make([]byte, 50)...) // 50 x NOP
	program = append(program, 0xE0, 0x04)          // LDH ($04),A
	program = append(program, make([]byte, 60)...) // 60 x NOP
	program = append(program, 0x18, 0xFE)          // JR -2
	e, _ := setupEmulator(t, program)

	for i := 0; i < 112; i++ {
		if _, err := e.Step(); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
	}
	if got := e.MMU.Read(timer.DIV); got != 0 {
		t.Fatalf("DIV = %d 252 cycles after the second write, want 0", got)
	}

	if _, err := e.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if got := e.MMU.Read(timer.DIV); got != 1 {
		t.Errorf("DIV = %d 264 cycles after the second write, want 1", got)
	}
}

func TestStopWakesOnJoypad(t *testing.T) {
	program := []byte{
		0x3E, 0x10, // LD A,$10
		0xE0, 0xFF, // LDH ($FF),A   IE = joypad
		0x10, 0x00, // STOP
		0x06, 0x42, // LD B,$42
		0x18, 0xFE, // JR -2
	}
	e, _ := setupEmulator(t, program)

	if err := e.RunFrame(); err != nil {
		t.Fatalf("RunFrame() error = %v", err)
	}
	if !e.CPU.Stopped() {
		t.Fatal("CPU not stopped")
	}
	div := e.MMU.Read(timer.DIV)
	if err := e.RunFrame(); err != nil {
		t.Fatalf("RunFrame() error = %v", err)
	}
	if got := e.MMU.Read(timer.DIV); got != div {
		t.Errorf("DIV moved while stopped: 0x%02X -> 0x%02X", div, got)
	}

	e.Press(input.KeyStart)
	if err := e.RunFrame(); err != nil {
		t.Fatalf("RunFrame() error = %v", err)
	}
	if e.CPU.Stopped() {
		t.Error("CPU still stopped after key press")
	}
	if e.CPU.Registers.B != 0x42 {
		t.Errorf("B = 0x%02X, want 0x42", e.CPU.Registers.B)
	}
}

func TestRunFramesCancel(t *testing.T) {
	e, _ := setupEmulator(t, []byte{0x18, 0xFE})

	if err := e.RunFrames(context.Background(), 3); err != nil {
		t.Fatalf("RunFrames() error = %v", err)
	}
	if e.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", e.Frames())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.RunFrames(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("RunFrames() error = %v, want context.Canceled", err)
	}
	if e.Frames() != 3 {
		t.Errorf("Frames() = %d after cancel, want 3", e.Frames())
	}
}

func TestFrameCycles(t *testing.T) {
	e, _ := setupEmulator(t, []byte{0x18, 0xFE}, WithFrameCycles(1200))

	if err := e.RunFrame(); err != nil {
		t.Fatalf("RunFrame() error = %v", err)
	}
	if e.CPU.Cycles < 1200 || e.CPU.Cycles >= 1212 {
		t.Errorf("Cycles = %d, want one short frame", e.CPU.Cycles)
	}
}

func TestSerialOutput(t *testing.T) {
	var tee bytes.Buffer
	e, _ := setupEmulator(t, serialProgram("OK"), WithSerialOutput(&tee))

	if err := e.RunFrame(); err != nil {
		t.Fatalf("RunFrame() error = %v", err)
	}
	if e.SerialOutput() != "OK" {
		t.Errorf("SerialOutput() = %q, want \"OK\"", e.SerialOutput())
	}
	if tee.String() != "OK" {
		t.Errorf("tee = %q, want \"OK\"", tee.String())
	}
}

func TestRunUntilOutput(t *testing.T) {
	e, _ := setupEmulator(t, serialProgram("cpu_instrs\n\nPassed\n"))

	out, err := e.RunUntilOutput(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("RunUntilOutput() error = %v", err)
	}
	if !strings.Contains(out, "Passed") {
		t.Errorf("output = %q, want Passed", out)
	}
}

func TestRunUntilOutputTimeout(t *testing.T) {
	e, _ := setupEmulator(t, []byte{0x18, 0xFE})

	_, err := e.RunUntilOutput(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

func TestNext(t *testing.T) {
	e, _ := setupEmulator(t, []byte{0xC3, 0x50, 0x01})

	ins, args := e.Next()
	if got := ins.Format(args); got != "JP $0150" {
		t.Errorf("Next() = %q, want \"JP $0150\"", got)
	}
	if e.CPU.Registers.PC != 0x0100 {
		t.Errorf("PC = 0x%04X, Next must not advance it", e.CPU.Registers.PC)
	}
}

func TestNewFromROM(t *testing.T) {
	rom := make([]byte, 0x8000)
	copy(rom[0x0134:], "DEMO")
	rom[0x0147] = 0x00
	rom[0x014D] = cartridge.HeaderChecksum(rom)

	e, err := NewFromROM(rom, true)
	if err != nil {
		t.Fatalf("NewFromROM() error = %v", err)
	}
	if e.Cart == nil || e.Cart.Header.GetTitle() != "DEMO" {
		t.Errorf("cartridge = %v, want DEMO", e.Cart)
	}

	rom[0x0147] = 0x05
	rom[0x014D] = cartridge.HeaderChecksum(rom)
	if _, err := NewFromROM(rom, true); !errors.Is(err, cartridge.ErrInvalidCartridgeHeader) {
		t.Errorf("NewFromROM(MBC2) error = %v, want ErrInvalidCartridgeHeader", err)
	}
}

func TestSnapshotFields(t *testing.T) {
	e, _ := setupEmulator(t, nil)

	f := e.Snapshot().Fields()
	if f["pc"] != "0x0100" {
		t.Errorf("pc = %v, want 0x0100", f["pc"])
	}
	if f["af"] != "0x01B0" {
		t.Errorf("af = %v, want 0x01B0", f["af"])
	}
	if _, ok := f["opcode"]; ok {
		t.Error("opcode field present without a failure")
	}
}
