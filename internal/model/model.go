// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the at-rest data structures shared by the vault,
// the persistence layer and the backup codec. Nothing in this package holds
// plaintext secret material.
package model // import "github.com/toeirei/passmaster/internal/model"

import (
	"time"

	"github.com/toeirei/passmaster/internal/kdf"
)

// SnapshotVersion is the current format version of a persisted vault.
const SnapshotVersion = 1

// Verifier is the stored proof of the master passphrase: a hash of a key
// derived from the passphrase, plus everything needed to derive it again.
// It cannot be reversed into the passphrase.
type Verifier struct {
	KDF       kdf.Params `json:"kdf"`
	Salt      []byte     `json:"salt"`
	Hash      []byte     `json:"hash"`
	CreatedAt time.Time  `json:"created_at"`
}

// Clone returns a deep copy of the verifier.
func (v *Verifier) Clone() *Verifier {
	if v == nil {
		return nil
	}
	out := *v
	out.Salt = append([]byte(nil), v.Salt...)
	out.Hash = append([]byte(nil), v.Hash...)
	return &out
}

// SealedRecord is the encrypted form of a credential. The service name and
// timestamps stay readable so listing never needs the key, but they are bound
// into the ciphertext's authentication tag.
type SealedRecord struct {
	Service    string    `json:"service"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the record.
func (r SealedRecord) Clone() SealedRecord {
	r.Nonce = append([]byte(nil), r.Nonce...)
	r.Ciphertext = append([]byte(nil), r.Ciphertext...)
	return r
}

// Snapshot is the whole vault as handed to and from persistence.
type Snapshot struct {
	Version  int            `json:"version"`
	Verifier *Verifier      `json:"verifier,omitempty"`
	Records  []SealedRecord `json:"records"`
}

// AuditEntry is one line of the audit trail. Details never include secrets.
type AuditEntry struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}
