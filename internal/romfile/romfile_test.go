package romfile

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testImage() []byte {
	img := make([]byte, 0x8000)
	for i := range img {
		img[i] = byte(i * 7)
	}
	return img
}

func TestLoadPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.gb")
	want := testImage()
	if err := os.WriteFile(path, want, 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("Load() returned different bytes")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.gb")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestDecodeGzip(t *testing.T) {
	want := testImage()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(want); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := Decode("game.gb.GZ", buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("Decode() returned different bytes")
	}
}

func TestDecodeZipPrefersCartridge(t *testing.T) {
	want := testImage()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range []struct {
		name string
		data []byte
	}{
		{"readme.txt", []byte("hello")},
		{"roms/", nil},
		{"roms/game.gb", want},
	} {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := Decode("pack.zip", buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Decode() returned %d bytes, want the .gb entry", len(got))
	}
}

func TestDecodeEmptyZip(t *testing.T) {
	var buf bytes.Buffer
	if err := zip.NewWriter(&buf).Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode("empty.zip", buf.Bytes()); !errors.Is(err, ErrEmptyArchive) {
		t.Errorf("Decode() error = %v, want ErrEmptyArchive", err)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	for _, name := range []string{"bad.gz", "bad.zip", "bad.7z"} {
		if _, err := Decode(name, []byte("not an archive")); err == nil {
			t.Errorf("Decode(%s) succeeded on garbage", name)
		}
	}
}

func TestDecodeTooLarge(t *testing.T) {
	if _, err := Decode("huge.gb", make([]byte, MaxSize+1)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Decode() error = %v, want ErrTooLarge", err)
	}
}

func TestPick(t *testing.T) {
	tests := []struct {
		names []string
		want  int
	}{
		{[]string{"a.txt", "b.gbc"}, 1},
		{[]string{"dir/", "a.bin"}, 1},
		{[]string{"a.bin", "b.GB"}, 1},
	}
	for _, tt := range tests {
		got, err := pick(tt.names)
		if err != nil || got != tt.want {
			t.Errorf("pick(%v) = %d, %v; want %d", tt.names, got, err, tt.want)
		}
	}
}
