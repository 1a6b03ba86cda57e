// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package kdf turns a master passphrase into a fixed-length key using a slow,
// memory-hard derivation function. The passphrase itself is never retained.
package kdf

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/toeirei/passmaster/internal/security"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/scrypt"
)

// Supported derivation algorithms.
const (
	Argon2id = "argon2id"
	Scrypt   = "scrypt"
)

const (
	// SaltLen is the required salt length in bytes.
	SaltLen = 16
	// KeyLen is the length of every derived key in bytes.
	KeyLen = 32

	// Upper bounds keep a verifier read from disk or a backup from
	// demanding more memory or time than a workstation has.
	scryptR      = 8
	minScryptN   = 10
	maxScryptN   = 20          // 128*r*N = 1 GiB
	maxArgonMem  = 1024 * 1024 // 1 GiB in KiB
	maxArgonTime = 64
)

// ErrDerivation is returned when derivation parameters are invalid.
var ErrDerivation = errors.New("kdf: invalid derivation parameters")

// Params describes the derivation algorithm and its work factors. It is
// persisted next to the salt so a vault can always be reopened with the
// parameters it was created with.
type Params struct {
	Algorithm string `json:"algorithm" yaml:"algorithm"`
	// Time is the argon2id iteration count.
	Time uint32 `json:"time" yaml:"time"`
	// MemoryKiB is the argon2id memory cost.
	MemoryKiB uint32 `json:"memory_kib" yaml:"memory_kib"`
	// Threads is the argon2id parallelism, and scrypt's p.
	Threads uint8 `json:"threads" yaml:"threads"`
	// LogN is log2 of the scrypt CPU/memory cost N.
	LogN uint8 `json:"log_n" yaml:"log_n"`
}

// DefaultParams returns the recommended argon2id parameters.
func DefaultParams() Params {
	return Params{Algorithm: Argon2id, Time: 3, MemoryKiB: 64 * 1024, Threads: 4, LogN: 15}
}

// TestParams returns deliberately cheap parameters. Only tests should use them.
func TestParams() Params {
	return Params{Algorithm: Argon2id, Time: 1, MemoryKiB: 64, Threads: 1, LogN: 10}
}

// Validate checks the parameters for the selected algorithm.
func (p Params) Validate() error {
	switch p.Algorithm {
	case Argon2id:
		if p.Time == 0 || p.Time > maxArgonTime {
			return fmt.Errorf("%w: argon2id time must be within [1, %d]", ErrDerivation, maxArgonTime)
		}
		if p.Threads == 0 {
			return fmt.Errorf("%w: argon2id threads must be at least 1", ErrDerivation)
		}
		if p.MemoryKiB < 8*uint32(p.Threads) {
			return fmt.Errorf("%w: argon2id memory must be at least %d KiB", ErrDerivation, 8*uint32(p.Threads))
		}
		if p.MemoryKiB > maxArgonMem {
			return fmt.Errorf("%w: argon2id memory %d KiB exceeds limit", ErrDerivation, p.MemoryKiB)
		}
	case Scrypt:
		if p.LogN < minScryptN || p.LogN > maxScryptN {
			return fmt.Errorf("%w: scrypt log_n must be within [%d, %d]", ErrDerivation, minScryptN, maxScryptN)
		}
		if p.Threads == 0 {
			return fmt.Errorf("%w: scrypt threads must be at least 1", ErrDerivation)
		}
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrDerivation, p.Algorithm)
	}
	return nil
}

// NewSalt returns SaltLen random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("kdf: failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a KeyLen-byte key from passphrase and salt. The result is
// deterministic for the same (passphrase, salt, params). It only fails on
// invalid parameters; any passphrase, including an empty one, is accepted.
func DeriveKey(passphrase, salt []byte, p Params) (security.Secret, error) {
	if len(salt) != SaltLen {
		return nil, fmt.Errorf("%w: salt must be %d bytes, got %d", ErrDerivation, SaltLen, len(salt))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.Algorithm {
	case Scrypt:
		key, err := scrypt.Key(passphrase, salt, 1<<p.LogN, scryptR, int(p.Threads), KeyLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDerivation, err)
		}
		return security.Secret(key), nil
	default:
		return security.Secret(argon2.IDKey(passphrase, salt, p.Time, p.MemoryKiB, p.Threads, KeyLen)), nil
	}
}
