// Package romfile reads cartridge images from disk, unpacking .gz, .zip and
// .7z files transparently.
package romfile

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"

	"github.com/richardwooding/dmgcore/internal/cartridge"
)

// MaxSize bounds the decompressed image size.
const MaxSize = cartridge.MaxROMSize

var (
	// ErrEmptyArchive indicates an archive with no file entries.
	ErrEmptyArchive = errors.New("archive contains no files")

	// ErrTooLarge indicates the decompressed image exceeds MaxSize.
	ErrTooLarge = errors.New("image exceeds maximum size")
)

// Load reads the file at path and returns the raw image.
func Load(path string) ([]byte, error) {
	// #nosec G304 - path is provided by the user via CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decode(path, data)
}

// Decode unpacks data according to the extension of name. Unknown
// extensions are returned unchanged.
func Decode(name string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		return readLimited(zr)

	case ".zip":
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("zip: %w", err)
		}
		names := make([]string, len(zr.File))
		for i, f := range zr.File {
			names[i] = f.Name
		}
		i, err := pick(names)
		if err != nil {
			return nil, err
		}
		return readEntry(zr.File[i].Open)

	case ".7z":
		sr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("7z: %w", err)
		}
		names := make([]string, len(sr.File))
		for i, f := range sr.File {
			names[i] = f.Name
		}
		i, err := pick(names)
		if err != nil {
			return nil, err
		}
		return readEntry(sr.File[i].Open)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	return data, nil
}

// pick chooses the archive entry to load: the first one with a cartridge
// extension, otherwise the first file.
func pick(names []string) (int, error) {
	first := -1
	for i, n := range names {
		if strings.HasSuffix(n, "/") {
			continue
		}
		switch strings.ToLower(filepath.Ext(n)) {
		case ".gb", ".gbc":
			return i, nil
		}
		if first < 0 {
			first = i
		}
	}
	if first < 0 {
		return 0, ErrEmptyArchive
	}
	return first, nil
}

func readEntry(open func() (io.ReadCloser, error)) ([]byte, error) {
	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readLimited(rc)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, MaxSize)
	}
	return data, nil
}
