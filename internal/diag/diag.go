// Package diag writes and reads post-mortem dumps: the machine snapshot and
// the full address space as the CPU saw it, as brotli-compressed JSON.
package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/richardwooding/dmgcore/internal/emulator"
	"github.com/richardwooding/dmgcore/internal/memory"
)

// Dump is the content of a dump file.
type Dump struct {
	Time   time.Time         `json:"time"`
	Error  string            `json:"error,omitempty"`
	State  emulator.Snapshot `json:"state"`
	Memory []byte            `json:"memory"`
}

// Capture builds a dump of e. When e has failed, the state is the one
// captured at the failure.
func Capture(e *emulator.Emulator) (*Dump, error) {
	d := &Dump{
		Time:  time.Now().UTC(),
		State: e.Snapshot(),
	}
	if crash := e.Crash(); crash != nil {
		d.State = *crash
	}
	if err := e.Err(); err != nil {
		d.Error = err.Error()
	}

	mem, err := e.MMU.Dump(0, memory.AddressSpace)
	if err != nil {
		return nil, err
	}
	d.Memory = mem
	return d, nil
}

// Write encodes d to w.
func Write(w io.Writer, d *Dump) error {
	bw := brotli.NewWriterLevel(w, brotli.DefaultCompression)
	if err := json.NewEncoder(bw).Encode(d); err != nil {
		_ = bw.Close()
		return fmt.Errorf("failed to encode dump: %w", err)
	}
	return bw.Close()
}

// Read decodes a dump written by Write.
func Read(r io.Reader) (*Dump, error) {
	var d Dump
	if err := json.NewDecoder(brotli.NewReader(r)).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode dump: %w", err)
	}
	return &d, nil
}

// WriteFile captures e and writes the dump to path.
func WriteFile(path string, e *emulator.Emulator) error {
	d, err := Capture(e)
	if err != nil {
		return err
	}

	f, err := os.Create(path) // #nosec G304 - path is provided by the user via CLI argument
	if err != nil {
		return fmt.Errorf("failed to create dump: %w", err)
	}
	if err := Write(f, d); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
