package diag

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/dmgcore/internal/emulator"
	"github.com/richardwooding/dmgcore/internal/memory"
)

func crashedEmulator(t *testing.T) *emulator.Emulator {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)

	e := emulator.New(nil, true, emulator.WithLogger(l))
	if err := e.MMU.LoadProgram(0x0100, []byte{0x3E, 0x42, 0xEB}); err != nil {
		t.Fatal(err)
	}
	if err := e.RunFrame(); !errors.Is(err, emulator.ErrFatal) {
		t.Fatalf("RunFrame() error = %v, want ErrFatal", err)
	}
	return e
}

func TestRoundTrip(t *testing.T) {
	e := crashedEmulator(t)

	d, err := Capture(e)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if len(d.Memory) != memory.AddressSpace {
		t.Fatalf("len(Memory) = %d, want %d", len(d.Memory), memory.AddressSpace)
	}

	var buf bytes.Buffer
	if err := Write(&buf, d); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if buf.Len() >= memory.AddressSpace {
		t.Errorf("dump is %d bytes, expected compression", buf.Len())
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !reflect.DeepEqual(got.State, d.State) {
		t.Errorf("State = %+v, want %+v", got.State, d.State)
	}
	if !bytes.Equal(got.Memory, d.Memory) {
		t.Error("Memory differs after round trip")
	}
	if got.Error == "" {
		t.Error("Error not recorded")
	}
}

func TestCaptureUsesCrashState(t *testing.T) {
	e := crashedEmulator(t)

	d, err := Capture(e)
	if err != nil {
		t.Fatal(err)
	}
	if d.State.PC != 0x0102 || d.State.Opcode != "EB" {
		t.Errorf("State at %04X %q, want 0102 \"EB\"", d.State.PC, d.State.Opcode)
	}
	if d.State.AF>>8 != 0x42 {
		t.Errorf("A = 0x%02X, want 0x42", d.State.AF>>8)
	}
}

func TestWriteFile(t *testing.T) {
	e := crashedEmulator(t)
	path := filepath.Join(t.TempDir(), "crash.dump")

	if err := WriteFile(path, e); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	d, err := Read(f)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if d.Memory[0x0100] != 0x3E {
		t.Errorf("Memory[0x0100] = 0x%02X, want 0x3E", d.Memory[0x0100])
	}
}

func TestReadGarbage(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("plain text"))); err == nil {
		t.Error("Read() accepted garbage")
	}
}
