package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sirupsen/logrus"

	"github.com/richardwooding/dmgcore/internal/cartridge"
	"github.com/richardwooding/dmgcore/internal/emulator"
	"github.com/richardwooding/dmgcore/internal/lcd"
	"github.com/richardwooding/dmgcore/internal/romfile"
	"github.com/richardwooding/dmgcore/internal/testrom"
)

// InfoCmd displays cartridge header information.
type InfoCmd struct {
	ROM string `arg:"" type:"existingfile" help:"Path to ROM file (.gb, .gz, .zip, .7z)."`
}

// Run executes the info command.
func (c *InfoCmd) Run(out io.Writer) error {
	data, err := romfile.Load(c.ROM)
	if err != nil {
		return err
	}

	cart, err := cartridge.New(data)
	if err != nil {
		return fmt.Errorf("failed to load cartridge: %w", err)
	}

	header := cart.Header
	fmt.Fprintf(out, "ROM Information:\n")
	fmt.Fprintf(out, "  Title:          %s\n", header.GetTitle())
	fmt.Fprintf(out, "  Cartridge Type: %s (0x%02X)\n", cart.Type(), header.CartridgeType)
	fmt.Fprintf(out, "  Controller:     %s\n", cart.MBC.Kind)
	fmt.Fprintf(out, "  ROM Size:       %d KiB (%d banks)\n", header.GetROMSizeBytes()/1024, header.GetROMBanks())
	fmt.Fprintf(out, "  RAM Size:       %d KiB (%d banks)\n", header.GetRAMSizeBytes()/1024, header.GetRAMBanks())
	fmt.Fprintf(out, "  Has Battery:    %v\n", cart.HasBattery())
	fmt.Fprintf(out, "  Multicart:      %v\n", cart.MBC.Multicart)
	fmt.Fprintf(out, "  Logo Valid:     %v\n", header.LogoValid())
	fmt.Fprintf(out, "  Global Sum OK:  %v\n", header.VerifyGlobalChecksum(data))
	fmt.Fprintf(out, "  Fingerprint:    %016x\n", cart.Fingerprint)

	return nil
}

// RunCmd runs a Game Boy ROM.
type RunCmd struct {
	ROM      string `arg:"" type:"existingfile" help:"Path to ROM file (.gb, .gz, .zip, .7z)."`
	Scale    int    `help:"Display scale factor (1-10)." default:"3"`
	Boot     string `help:"Boot ROM image to run instead of the built-in one." type:"existingfile"`
	SkipBoot bool   `help:"Start at 0x0100 with post-boot state."`
	Dump     string `help:"Write a compressed state dump here if emulation fails." type:"path"`
	Save     string `help:"Battery save file. Defaults to the ROM path with a .sav extension." type:"path"`
}

// Run executes the run command.
func (c *RunCmd) Run(ctx context.Context, log *logrus.Logger) error {
	if c.Scale < 1 || c.Scale > 10 {
		return fmt.Errorf("%w: got %d", ErrInvalidScale, c.Scale)
	}

	emu, err := c.load(log)
	if err != nil {
		return err
	}
	log.WithField("cartridge", emu.Cart.String()).Info("starting")

	save := savePath(c.ROM, c.Save)
	if err := loadSave(log, emu.Cart, save); err != nil {
		return err
	}

	display := NewDisplay(ctx, emu, c.Dump)

	ebiten.SetWindowTitle("dmgcore - " + emu.Cart.Header.GetTitle())
	ebiten.SetWindowSize(lcd.ScreenWidth*c.Scale, lcd.ScreenHeight*c.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	runErr := ebiten.RunGame(display)
	if runErr != nil {
		runErr = fmt.Errorf("emulator error: %w", runErr)
	}
	return errors.Join(runErr, writeSave(log, emu.Cart, save))
}

func (c *RunCmd) load(log *logrus.Logger) (*emulator.Emulator, error) {
	data, err := romfile.Load(c.ROM)
	if err != nil {
		return nil, err
	}

	opts := []emulator.Option{emulator.WithLogger(log)}
	if c.Boot != "" {
		// #nosec G304 - path is provided by the user via CLI argument
		boot, err := os.ReadFile(c.Boot)
		if err != nil {
			return nil, fmt.Errorf("failed to read boot ROM: %w", err)
		}
		opts = append(opts, emulator.WithBootROM(boot))
	}

	return emulator.NewFromROM(data, c.SkipBoot, opts...)
}

// TestCmd runs a test ROM and reports results.
type TestCmd struct {
	ROM     string `arg:"" type:"existingfile" help:"Path to test ROM file."`
	Timeout int    `default:"30" help:"Timeout in seconds."`
	Verbose bool   `short:"v" help:"Show detailed output."`
}

// Run executes the test command.
func (c *TestCmd) Run(ctx context.Context, log *logrus.Logger, out io.Writer) error {
	fmt.Fprintf(out, "Running test ROM: %s\n", c.ROM)

	timeout := time.Duration(c.Timeout) * time.Second
	result := testrom.Run(ctx, c.ROM, timeout, emulator.WithLogger(log))

	fmt.Fprintf(out, "Result: %s\n", result.String())

	if c.Verbose || !result.IsSuccess() {
		fmt.Fprintf(out, "\nOutput:\n%s\n", result.Output)
	}

	if !result.IsSuccess() {
		return ErrTestFailed
	}
	return nil
}

// TraceCmd executes a ROM without a window and prints one line per
// instruction.
type TraceCmd struct {
	ROM      string `arg:"" type:"existingfile" help:"Path to ROM file."`
	Steps    int    `default:"1000" help:"Number of instructions to execute."`
	SkipBoot bool   `default:"true" negatable:"" help:"Start at 0x0100 with post-boot state."`
}

// Run executes the trace command.
func (c *TraceCmd) Run(ctx context.Context, log *logrus.Logger, out io.Writer) error {
	data, err := romfile.Load(c.ROM)
	if err != nil {
		return err
	}
	emu, err := emulator.NewFromROM(data, c.SkipBoot, emulator.WithLogger(log))
	if err != nil {
		return err
	}
	return trace(ctx, emu, c.Steps, out)
}

func trace(ctx context.Context, emu *emulator.Emulator, steps int, out io.Writer) error {
	w := bufio.NewWriter(out)
	defer w.Flush()

	for i := 0; i < steps; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		pc := emu.CPU.Registers.PC
		ins, args := emu.Next()
		line := fmt.Sprintf("%04X  %-16s %s", pc, ins.Format(args), emu.CPU.Registers)
		if _, err := emu.Step(); err != nil {
			fmt.Fprintln(w, line)
			return err
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
