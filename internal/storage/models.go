// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package storage

import (
	"time"

	"github.com/toeirei/passmaster/internal/kdf"
	"github.com/toeirei/passmaster/internal/model"
	"github.com/uptrace/bun"
)

// metaRowID is the primary key of the single vault_meta row.
const metaRowID = 1

// VaultMetaModel maps the vault_meta table. It holds the verifier.
type VaultMetaModel struct {
	bun.BaseModel `bun:"table:vault_meta"`
	ID            int    `bun:"id,pk"`
	Version       int    `bun:"version"`
	KDFAlgorithm  string `bun:"kdf_algorithm"`
	KDFTime       int64  `bun:"kdf_time"`
	KDFMemoryKiB  int64  `bun:"kdf_memory_kib"`
	KDFThreads    int    `bun:"kdf_threads"`
	KDFLogN       int    `bun:"kdf_log_n"`
	Salt          []byte `bun:"salt"`
	Hash          []byte `bun:"hash"`
	CreatedAt     int64  `bun:"created_at"`
}

// CredentialModel maps the credentials table. Only sealed data is stored.
type CredentialModel struct {
	bun.BaseModel `bun:"table:credentials"`
	Service       string `bun:"service,pk"`
	Nonce         []byte `bun:"nonce"`
	Ciphertext    []byte `bun:"ciphertext"`
	CreatedAt     int64  `bun:"created_at"`
	UpdatedAt     int64  `bun:"updated_at"`
}

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     int64  `bun:"timestamp"`
	Username      string `bun:"username"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

// Timestamps are stored as Unix microseconds so every engine returns them
// exactly as written.
func toMicros(t time.Time) int64 { return t.UTC().UnixMicro() }

func fromMicros(us int64) time.Time { return time.UnixMicro(us).UTC() }

func metaFromVerifier(v *model.Verifier, version int) *VaultMetaModel {
	return &VaultMetaModel{
		ID:           metaRowID,
		Version:      version,
		KDFAlgorithm: v.KDF.Algorithm,
		KDFTime:      int64(v.KDF.Time),
		KDFMemoryKiB: int64(v.KDF.MemoryKiB),
		KDFThreads:   int(v.KDF.Threads),
		KDFLogN:      int(v.KDF.LogN),
		Salt:         v.Salt,
		Hash:         v.Hash,
		CreatedAt:    toMicros(v.CreatedAt),
	}
}

func (m *VaultMetaModel) verifier() *model.Verifier {
	return &model.Verifier{
		KDF: kdf.Params{
			Algorithm: m.KDFAlgorithm,
			Time:      uint32(m.KDFTime),
			MemoryKiB: uint32(m.KDFMemoryKiB),
			Threads:   uint8(m.KDFThreads),
			LogN:      uint8(m.KDFLogN),
		},
		Salt:      m.Salt,
		Hash:      m.Hash,
		CreatedAt: fromMicros(m.CreatedAt),
	}
}

func credentialFromRecord(r model.SealedRecord) *CredentialModel {
	return &CredentialModel{
		Service:    r.Service,
		Nonce:      r.Nonce,
		Ciphertext: r.Ciphertext,
		CreatedAt:  toMicros(r.CreatedAt),
		UpdatedAt:  toMicros(r.UpdatedAt),
	}
}

func (m *CredentialModel) record() model.SealedRecord {
	return model.SealedRecord{
		Service:    m.Service,
		Nonce:      m.Nonce,
		Ciphertext: m.Ciphertext,
		CreatedAt:  fromMicros(m.CreatedAt),
		UpdatedAt:  fromMicros(m.UpdatedAt),
	}
}
