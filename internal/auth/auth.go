// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package auth creates and checks the master passphrase verifier.
//
// The passphrase is stretched with the kdf package into a master key. HKDF
// expands the master key into two independent subkeys: one encrypts records,
// the other is hashed into the stored verifier. Knowing the verifier reveals
// nothing about the encryption key.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/toeirei/passmaster/internal/clock"
	"github.com/toeirei/passmaster/internal/kdf"
	"github.com/toeirei/passmaster/internal/model"
	"github.com/toeirei/passmaster/internal/security"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

// HashLen is the length of the stored verifier hash.
const HashLen = blake2b.Size256

const (
	infoEncryption   = "passmaster/v1/encryption"
	infoVerification = "passmaster/v1/verification"
)

// ErrMalformedVerifier is returned when a stored verifier has the wrong shape.
var ErrMalformedVerifier = errors.New("auth: malformed verifier")

// Setup creates a verifier for a brand new vault with a fresh salt.
func Setup(passphrase []byte, params kdf.Params) (*model.Verifier, error) {
	v, key, err := Enroll(passphrase, params)
	key.Zero()
	return v, err
}

// Enroll is Setup that also returns the record encryption key, sparing a
// second derivation when the new vault is opened right away. The caller owns
// the key and must zero it.
func Enroll(passphrase []byte, params kdf.Params) (*model.Verifier, security.Secret, error) {
	salt, err := kdf.NewSalt()
	if err != nil {
		return nil, nil, err
	}
	var encKey security.Secret
	hash, err := verificationHash(passphrase, salt, params, &encKey)
	if err != nil {
		return nil, nil, err
	}
	return &model.Verifier{
		KDF:       params,
		Salt:      salt,
		Hash:      hash,
		CreatedAt: clock.Now().UTC(),
	}, encKey, nil
}

// Verify reports whether passphrase matches the verifier.
func Verify(passphrase []byte, v *model.Verifier) (bool, error) {
	key, ok, err := Authenticate(passphrase, v)
	key.Zero()
	return ok, err
}

// Authenticate checks passphrase against the verifier and, when it matches,
// returns the record encryption key. The caller owns the key and must zero it.
// A mismatch is not an error: it returns a nil key and false.
func Authenticate(passphrase []byte, v *model.Verifier) (security.Secret, bool, error) {
	if err := checkShape(v); err != nil {
		return nil, false, err
	}
	var encKey security.Secret
	hash, err := verificationHash(passphrase, v.Salt, v.KDF, &encKey)
	if err != nil {
		return nil, false, err
	}
	defer security.Wipe(hash)

	if subtle.ConstantTimeCompare(hash, v.Hash) != 1 {
		encKey.Zero()
		return nil, false, nil
	}
	return encKey, true, nil
}

func checkShape(v *model.Verifier) error {
	if v == nil {
		return fmt.Errorf("%w: missing", ErrMalformedVerifier)
	}
	if len(v.Salt) != kdf.SaltLen {
		return fmt.Errorf("%w: salt is %d bytes, want %d", ErrMalformedVerifier, len(v.Salt), kdf.SaltLen)
	}
	if len(v.Hash) != HashLen {
		return fmt.Errorf("%w: hash is %d bytes, want %d", ErrMalformedVerifier, len(v.Hash), HashLen)
	}
	return nil
}

// verificationHash derives the master key and returns the hash of its
// verification subkey. When encOut is non-nil it also receives the encryption
// subkey. The master and verification keys are wiped before returning.
func verificationHash(passphrase, salt []byte, params kdf.Params, encOut *security.Secret) ([]byte, error) {
	master, err := kdf.DeriveKey(passphrase, salt, params)
	if err != nil {
		return nil, err
	}
	defer master.Zero()

	verifyKey, err := expand(master, salt, infoVerification)
	if err != nil {
		return nil, err
	}
	defer verifyKey.Zero()

	if encOut != nil {
		enc, err := expand(master, salt, infoEncryption)
		if err != nil {
			return nil, err
		}
		*encOut = enc
	}

	sum := blake2b.Sum256(verifyKey)
	return sum[:], nil
}

func expand(master security.Secret, salt []byte, info string) (security.Secret, error) {
	out := make([]byte, kdf.KeyLen)
	r := hkdf.New(sha256.New, master, salt, []byte(info))
	if _, err := io.ReadFull(r, out); err != nil {
		security.Wipe(out)
		return nil, fmt.Errorf("auth: key expansion failed: %w", err)
	}
	return security.Secret(out), nil
}
