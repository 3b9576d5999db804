// Package emulator provides the main emulator runner that ties together
// CPU, memory, cartridge, timer and display clock.
package emulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/dmgcore/internal/boot"
	"github.com/richardwooding/dmgcore/internal/cartridge"
	"github.com/richardwooding/dmgcore/internal/cpu"
	"github.com/richardwooding/dmgcore/internal/input"
	"github.com/richardwooding/dmgcore/internal/interrupts"
	"github.com/richardwooding/dmgcore/internal/lcd"
	"github.com/richardwooding/dmgcore/internal/memory"
	"github.com/richardwooding/dmgcore/internal/timer"
)

var (
	// ErrFatal wraps every failure that ends emulation.
	ErrFatal = errors.New("fatal emulation error")

	// ErrTimeout indicates the operation timed out.
	ErrTimeout = errors.New("timeout waiting for serial output")
)

// FrameCycles is the number of CPU cycles in one display frame.
const FrameCycles = lcd.DotsPerFrame

// Emulator represents a Game Boy emulator instance.
type Emulator struct {
	CPU   *cpu.CPU
	MMU   *memory.MMU
	Timer *timer.Timer
	LCD   *lcd.Controller
	Cart  *cartridge.Cartridge

	log         *logrus.Logger
	bootROM     []byte
	cpuOpts     []cpu.Option
	frameCycles int
	frames      uint64

	serial    bytes.Buffer
	serialOut io.Writer

	failed error
	crash  *Snapshot
}

// Option configures an Emulator.
type Option func(*Emulator)

// WithLogger sets the logger fatal failures are reported to.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Emulator) {
		e.log = l
	}
}

// WithBootROM runs the given boot image instead of the built-in program.
// It is ignored when the boot sequence is skipped.
func WithBootROM(rom []byte) Option {
	return func(e *Emulator) {
		e.bootROM = rom
	}
}

// WithVisitedTracking records every instruction address executed.
func WithVisitedTracking() Option {
	return func(e *Emulator) {
		e.cpuOpts = append(e.cpuOpts, cpu.WithVisitedTracking())
	}
}

// WithFrameCycles overrides the cycle budget of one frame.
func WithFrameCycles(n int) Option {
	return func(e *Emulator) {
		if n > 0 {
			e.frameCycles = n
		}
	}
}

// WithSerialOutput copies link-port output to w as it is produced, in
// addition to the internal buffer.
func WithSerialOutput(w io.Writer) Option {
	return func(e *Emulator) {
		e.serialOut = w
	}
}

// New creates an emulator around cart, which may be nil. With skipBoot the
// CPU and I/O registers start in the state the boot program leaves them in
// and execution begins at 0x0100.
func New(cart *cartridge.Cartridge, skipBoot bool, opts ...Option) *Emulator {
	e := &Emulator{
		Cart:        cart,
		Timer:       timer.New(),
		LCD:         lcd.New(),
		frameCycles: FrameCycles,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = newLogger()
	}

	var serial io.Writer = &e.serial
	if e.serialOut != nil {
		serial = io.MultiWriter(&e.serial, e.serialOut)
	}
	memOpts := []memory.Option{
		memory.WithSerial(serial),
		memory.WithDividerReset(e.Timer.ResetDivider),
	}
	if !skipBoot {
		rom := e.bootROM
		if len(rom) == 0 {
			rom = boot.Program()
		}
		memOpts = append(memOpts, memory.WithBootROM(rom))
	}

	e.MMU = memory.New(cart, memOpts...)
	e.CPU = cpu.New(e.cpuOpts...)
	if skipBoot {
		e.CPU.Registers.SetPostBoot()
		e.setPostBootIO()
	}
	return e
}

// NewFromROM loads a cartridge image and creates an emulator for it.
func NewFromROM(rom []byte, skipBoot bool, opts ...Option) (*Emulator, error) {
	cart, err := cartridge.New(rom)
	if err != nil {
		return nil, fmt.Errorf("failed to load cartridge: %w", err)
	}
	return New(cart, skipBoot, opts...), nil
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	}
	return l
}

// postBootIO is the I/O state the DMG boot program leaves behind.
var postBootIO = []struct {
	addr  uint16
	value uint8
}{
	{memory.SC, 0x7E},
	{timer.DIV, 0xAB},
	{timer.TAC, 0xF8},
	{interrupts.IF, 0x01},
	{lcd.LCDC, 0x91},
	{lcd.STAT, 0x85},
	{lcd.BGP, 0xFC},
	{memory.DMA, 0xFF},
	{memory.BOOT, 0x01},
}

func (e *Emulator) setPostBootIO() {
	for _, r := range postBootIO {
		e.MMU.Store(r.addr, r.value)
	}
}

// Logger returns the emulator's logger.
func (e *Emulator) Logger() *logrus.Logger {
	return e.log
}

// Frames returns the number of frames run.
func (e *Emulator) Frames() uint64 {
	return e.frames
}

// Err returns the failure that stopped the emulator, if any.
func (e *Emulator) Err() error {
	return e.failed
}

// Crash returns the state captured when the emulator failed, or nil.
func (e *Emulator) Crash() *Snapshot {
	return e.crash
}

// Step executes one instruction, services interrupts and advances the timer
// and display clock by the cycles spent. Any failure is fatal: it is logged
// with a snapshot and every later call returns the same error.
func (e *Emulator) Step() (int, error) {
	if e.failed != nil {
		return 0, e.failed
	}

	cycles, err := e.CPU.Step(e.MMU)
	if err != nil {
		return 0, e.fail(err)
	}
	cycles += e.CPU.HandleInterrupts(e.MMU)

	e.Timer.Stopped = e.CPU.Stopped()
	e.Timer.Step(e.MMU, cycles)
	e.LCD.Step(e.MMU, cycles)
	return cycles, nil
}

// RunCycles runs whole instructions until at least n cycles have elapsed
// and returns the cycles actually run.
func (e *Emulator) RunCycles(n int) (int, error) {
	ran := 0
	for ran < n {
		cycles, err := e.Step()
		if err != nil {
			return ran, err
		}
		ran += cycles
	}
	return ran, nil
}

// RunFrame applies queued input and runs one frame's worth of cycles.
func (e *Emulator) RunFrame() error {
	e.MMU.DrainInput()
	if _, err := e.RunCycles(e.frameCycles); err != nil {
		return err
	}
	e.frames++
	return nil
}

// RunFrames runs n frames, or until ctx is done when n is zero or less.
// Cancellation is only observed between frames.
func (e *Emulator) RunFrames(ctx context.Context, n int) error {
	for i := 0; n <= 0 || i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.RunFrame(); err != nil {
			return err
		}
	}
	return nil
}

// RunUntilOutput runs until the serial output reports a result or timeout
// passes without new output. Blargg's test ROMs print "Passed" or "Failed"
// when they complete.
func (e *Emulator) RunUntilOutput(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	lastLen := 0

	for {
		if time.Now().After(deadline) {
			return e.SerialOutput(), ErrTimeout
		}
		if err := e.RunFrames(ctx, 1); err != nil {
			return e.SerialOutput(), err
		}

		if e.serial.Len() > lastLen {
			lastLen = e.serial.Len()
			deadline = time.Now().Add(timeout)
		}

		out := e.SerialOutput()
		if strings.Contains(out, "Passed") || strings.Contains(out, "Failed") {
			return out, nil
		}
	}
}

// SerialOutput returns everything written to the link port so far.
func (e *Emulator) SerialOutput() string {
	return e.serial.String()
}

// PostInput queues a joypad event.
func (e *Emulator) PostInput(ev input.Event) {
	e.MMU.PostInput(ev)
}

// Press queues a key press.
func (e *Emulator) Press(k input.Key) {
	e.PostInput(input.Event{Key: k, Pressed: true})
}

// Release queues a key release.
func (e *Emulator) Release(k input.Key) {
	e.PostInput(input.Event{Key: k})
}

// Next decodes the instruction at PC without executing it.
func (e *Emulator) Next() (cpu.Instruction, []uint8) {
	pc := e.CPU.Registers.PC
	ins, args := e.CPU.Decode(e.MMU)
	e.CPU.Registers.PC = pc
	return ins, append([]uint8(nil), args...)
}

func (e *Emulator) fail(err error) error {
	snap := e.Snapshot()
	var op *cpu.UnimplementedOpcodeError
	if errors.As(err, &op) {
		snap.PC = op.Addr
		snap.Opcode = op.Opcode.String()
	}
	e.crash = &snap
	e.log.WithFields(snap.Fields()).WithError(err).Error("emulation stopped")

	e.failed = fmt.Errorf("%w: %w", ErrFatal, err)
	return e.failed
}
