// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/toeirei/passmaster/internal/model"
	"github.com/toeirei/passmaster/internal/security"
	"golang.org/x/crypto/chacha20poly1305"
)

const aadPrefix = "passmaster/record/v1"

// additionalData binds the cleartext metadata of a record to its ciphertext.
func additionalData(service string, created, updated time.Time) []byte {
	ad := make([]byte, 0, len(aadPrefix)+4+len(service)+16)
	ad = append(ad, aadPrefix...)
	ad = binary.BigEndian.AppendUint32(ad, uint32(len(service)))
	ad = append(ad, service...)
	ad = binary.BigEndian.AppendUint64(ad, uint64(created.UnixMicro()))
	ad = binary.BigEndian.AppendUint64(ad, uint64(updated.UnixMicro()))
	return ad
}

// encodePayload lays out username and secret as len(username)||username||secret.
func encodePayload(username string, secret []byte) []byte {
	buf := make([]byte, 0, 4+len(username)+len(secret))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(username)))
	buf = append(buf, username...)
	buf = append(buf, secret...)
	return buf
}

func decodePayload(buf []byte) (string, security.Secret, error) {
	if len(buf) < 4 {
		return "", nil, ErrIntegrity
	}
	n := binary.BigEndian.Uint32(buf)
	if uint64(n) > uint64(len(buf)-4) {
		return "", nil, ErrIntegrity
	}
	username := string(buf[4 : 4+n])
	secret := security.FromBytes(buf[4+n:])
	return username, secret, nil
}

func newAEAD(key security.Secret) (cipher.AEAD, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrNotAuthenticated
	}
	var aead cipher.AEAD
	err := key.Use(func(b []byte) (err error) {
		aead, err = chacha20poly1305.NewX(b)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("vault: cipher init: %w", err)
	}
	return aead, nil
}

// seal encrypts username and secret under key with a fresh random nonce.
func seal(key security.Secret, service, username string, secret []byte, created, updated time.Time) (model.SealedRecord, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return model.SealedRecord{}, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return model.SealedRecord{}, fmt.Errorf("vault: nonce: %w", err)
	}
	payload := encodePayload(username, secret)
	defer security.Wipe(payload)

	return model.SealedRecord{
		Service:    service,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, payload, additionalData(service, created, updated)),
		CreatedAt:  created,
		UpdatedAt:  updated,
	}, nil
}

// open authenticates and decrypts rec. Any failure other than a missing key
// is reported as ErrIntegrity and no plaintext is returned.
func open(key security.Secret, rec model.SealedRecord) (Record, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return Record{}, err
	}
	if len(rec.Nonce) != aead.NonceSize() {
		return Record{}, ErrIntegrity
	}
	plain, err := aead.Open(nil, rec.Nonce, rec.Ciphertext, additionalData(rec.Service, rec.CreatedAt, rec.UpdatedAt))
	if err != nil {
		return Record{}, ErrIntegrity
	}
	defer security.Wipe(plain)

	username, secret, err := decodePayload(plain)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Service:   rec.Service,
		Username:  username,
		Secret:    secret,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}
