// Package main provides the dmgcore CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
)

var (
	// ErrTestFailed indicates a test ROM failed.
	ErrTestFailed = errors.New("test failed")

	// ErrInvalidScale indicates the scale factor is out of valid range.
	ErrInvalidScale = errors.New("scale must be between 1 and 10")
)

// CLI represents the command-line interface structure.
type CLI struct {
	Config   kong.ConfigFlag `help:"Load defaults from a JSON config file."`
	LogLevel string          `help:"Log level." enum:"trace,debug,info,warn,error" default:"info"`

	Info  InfoCmd  `cmd:"" help:"Display cartridge information."`
	Run   RunCmd   `cmd:"" help:"Run a Game Boy ROM."`
	Test  TestCmd  `cmd:"" help:"Run a test ROM and report results."`
	Trace TraceCmd `cmd:"" help:"Execute a ROM headless, printing every instruction."`
}

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(lvl)
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}
	return l, nil
}

func main() {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("dmgcore"),
		kong.Description("A Game Boy (DMG) CPU core and emulator written in Go."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "~/.config/dmgcore/config.json"),
		kong.BindTo(sigCtx, (*context.Context)(nil)),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)

	log, err := newLogger(cli.LogLevel)
	ctx.FatalIfErrorf(err)

	if err := ctx.Run(log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
