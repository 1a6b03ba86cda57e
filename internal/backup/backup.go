// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package backup reads and writes Zstandard-compressed JSON backups of the
// sealed vault. A backup never contains plaintext; restoring it requires the
// master passphrase that was current when it was taken.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/passmaster/internal/model"
)

// FormatVersion is the current backup format.
const FormatVersion = 1

// Extension is appended to backup file names that lack it.
const Extension = ".zst"

// ErrUnsupportedVersion is returned for backups written by an unknown format.
var ErrUnsupportedVersion = errors.New("backup: unsupported format version")

// Data is the content of a backup file.
type Data struct {
	FormatVersion int            `json:"format_version"`
	CreatedAt     time.Time      `json:"created_at"`
	Vault         model.Snapshot `json:"vault"`
}

// New wraps a vault snapshot in a backup taken at now.
func New(snap model.Snapshot, now time.Time) *Data {
	return &Data{FormatVersion: FormatVersion, CreatedAt: now.UTC(), Vault: snap}
}

// Write encodes d as indented JSON into a zstd stream on w.
func Write(w io.Writer, d *Data) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	encoder := json.NewEncoder(zw)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(d); err != nil {
		_ = zw.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return zw.Close()
}

// Read decodes a backup from a zstd stream and validates it.
func Read(r io.Reader) (*Data, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	var d Data
	if err := json.NewDecoder(zr).Decode(&d); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	if d.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, d.FormatVersion)
	}
	if d.Vault.Verifier == nil {
		return nil, errors.New("backup: missing verifier")
	}
	if err := d.Vault.Verifier.KDF.Validate(); err != nil {
		return nil, fmt.Errorf("backup: verifier: %w", err)
	}
	seen := make(map[string]struct{}, len(d.Vault.Records))
	for _, rec := range d.Vault.Records {
		if _, dup := seen[rec.Service]; dup {
			return nil, fmt.Errorf("backup: duplicate service %q", rec.Service)
		}
		seen[rec.Service] = struct{}{}
	}
	return &d, nil
}

// WriteFile writes a backup to filename with owner-only permissions.
func WriteFile(filename string, d *Data) (err error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(file, d)
}

// ReadFile reads a backup from filename.
func ReadFile(filename string) (*Data, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Read(file)
}

// Filename returns the output file name for a backup. An empty name yields
// passmaster-backup-YYYY-MM-DD.json.zst; otherwise Extension is appended
// when missing.
func Filename(name string, now time.Time) string {
	if name == "" {
		return fmt.Sprintf("passmaster-backup-%s.json%s", now.Format("2006-01-02"), Extension)
	}
	if !strings.HasSuffix(name, Extension) {
		name += Extension
	}
	return name
}
