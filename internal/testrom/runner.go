// Package testrom runs self-checking test ROMs that report over the link
// port, as Blargg's suites do.
package testrom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/dmgcore/internal/emulator"
	"github.com/richardwooding/dmgcore/internal/romfile"
)

// Verdict classifies a finished run.
type Verdict int

// Verdicts, in the order String checks them.
const (
	Unknown Verdict = iota
	Passed
	Failed
	TimedOut
	Errored
)

var verdictNames = [...]string{"UNKNOWN", "PASSED", "FAILED", "TIMEOUT", "ERROR"}

func (v Verdict) String() string {
	if int(v) < len(verdictNames) {
		return verdictNames[v]
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// Result is the outcome of one test ROM.
type Result struct {
	Verdict Verdict
	Output  string
	Err     error
	Frames  uint64
}

// Run loads a test ROM from disk, unpacking archives, and runs it.
func Run(ctx context.Context, romPath string, timeout time.Duration, opts ...emulator.Option) *Result {
	data, err := romfile.Load(romPath)
	if err != nil {
		return &Result{Verdict: Errored, Err: err}
	}
	return RunImage(ctx, data, timeout, opts...)
}

// RunImage runs an in-memory image from the post-boot state. The timeout
// restarts each time the ROM prints.
func RunImage(ctx context.Context, data []byte, timeout time.Duration, opts ...emulator.Option) *Result {
	emu, err := emulator.NewFromROM(data, true, opts...)
	if err != nil {
		return &Result{Verdict: Errored, Err: fmt.Errorf("create emulator: %w", err)}
	}

	output, err := emu.RunUntilOutput(ctx, timeout)
	r := &Result{Output: output, Err: err, Frames: emu.Frames()}
	r.Verdict = classify(output, err)

	emu.Logger().WithFields(logrus.Fields{
		"verdict": r.Verdict,
		"frames":  r.Frames,
		"bytes":   len(output),
	}).Debug("test ROM finished")
	return r
}

// classify reads the verdict from the serial transcript. "Failed" wins when
// both words appear.
func classify(output string, err error) Verdict {
	switch {
	case errors.Is(err, emulator.ErrTimeout):
		return TimedOut
	case err != nil:
		return Errored
	case strings.Contains(output, "Failed"):
		return Failed
	case strings.Contains(output, "Passed"):
		return Passed
	}
	return Unknown
}

func (r *Result) String() string {
	if r.Verdict == Errored {
		return fmt.Sprintf("ERROR: %v", r.Err)
	}
	return r.Verdict.String()
}

// IsSuccess reports a clean pass.
func (r *Result) IsSuccess() bool {
	return r.Verdict == Passed
}
