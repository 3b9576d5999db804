package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/dmgcore/internal/cartridge"
)

// savePath returns the battery save file for a ROM: the explicit path when
// one was given, otherwise the ROM path with its extension replaced by .sav.
func savePath(rom, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return strings.TrimSuffix(rom, filepath.Ext(rom)) + ".sav"
}

// loadSave restores battery-backed RAM from path. A missing file is a fresh
// game, not an error.
func loadSave(log *logrus.Logger, cart *cartridge.Cartridge, path string) error {
	if !cart.HasBattery() || len(cart.RAM) == 0 {
		return nil
	}

	// #nosec G304 - path is derived from the user's ROM argument
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.WithField("path", path).Debug("no save file")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read save: %w", err)
	}
	if err := cart.SetRAM(data); err != nil {
		return fmt.Errorf("failed to restore %s: %w", path, err)
	}

	log.WithFields(logrus.Fields{
		"path":        path,
		"bytes":       len(cart.RAM),
		"fingerprint": fmt.Sprintf("%016x", cart.Fingerprint),
	}).Info("save loaded")
	return nil
}

// writeSave persists battery-backed RAM to path.
func writeSave(log *logrus.Logger, cart *cartridge.Cartridge, path string) error {
	ram := cart.GetRAM()
	if !cart.HasBattery() || len(ram) == 0 {
		return nil
	}
	if err := os.WriteFile(path, ram, 0o600); err != nil {
		return fmt.Errorf("failed to write save: %w", err)
	}

	log.WithFields(logrus.Fields{
		"path":        path,
		"bytes":       len(ram),
		"fingerprint": fmt.Sprintf("%016x", cart.Fingerprint),
	}).Info("save written")
	return nil
}
