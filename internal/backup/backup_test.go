// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package backup

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toeirei/passmaster/internal/kdf"
	"github.com/toeirei/passmaster/internal/model"
)

func sampleSnapshot() model.Snapshot {
	ts := time.Date(2024, 4, 5, 6, 7, 8, 0, time.UTC)
	return model.Snapshot{
		Version: model.SnapshotVersion,
		Verifier: &model.Verifier{
			KDF:       kdf.TestParams(),
			Salt:      bytes.Repeat([]byte{1}, kdf.SaltLen),
			Hash:      bytes.Repeat([]byte{2}, 32),
			CreatedAt: ts,
		},
		Records: []model.SealedRecord{
			{Service: "GitHub", Nonce: bytes.Repeat([]byte{3}, 24), Ciphertext: []byte{4, 5, 6}, CreatedAt: ts, UpdatedAt: ts},
		},
	}
}

func TestFileRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "vault.json.zst")
	in := New(sampleSnapshot(), time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, WriteFile(name, in))

	info, err := os.Stat(name)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func writeRaw(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(zw).Encode(v))
	require.NoError(t, zw.Close())
	return &buf
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	d := New(sampleSnapshot(), time.Now())
	d.FormatVersion = 99
	_, err := Read(writeRaw(t, d))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestReadRejectsMissingVerifierAndDuplicates(t *testing.T) {
	d := New(sampleSnapshot(), time.Now())
	d.Vault.Verifier = nil
	_, err := Read(writeRaw(t, d))
	assert.ErrorContains(t, err, "missing verifier")

	d = New(sampleSnapshot(), time.Now())
	d.Vault.Records = append(d.Vault.Records, d.Vault.Records[0])
	_, err = Read(writeRaw(t, d))
	assert.ErrorContains(t, err, "duplicate service")

	d = New(sampleSnapshot(), time.Now())
	d.Vault.Verifier.KDF = kdf.Params{Algorithm: kdf.Scrypt, Threads: 1, LogN: 30}
	_, err = Read(writeRaw(t, d))
	assert.ErrorIs(t, err, kdf.ErrDerivation)
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read(bytes.NewBufferString("not zstd at all"))
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	now := time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "passmaster-backup-2025-10-26.json.zst", Filename("", now))
	assert.Equal(t, "my.json.zst", Filename("my.json", now))
	assert.Equal(t, "my.zst", Filename("my.zst", now))
}
