// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/passmaster/internal/kdf"
	"github.com/toeirei/passmaster/internal/model"
)

// newTestStore opens a private in-memory sqlite Store for the test.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "?mode=memory&cache=shared"
	s, err := Open(context.Background(), SQLite, dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testVerifier() *model.Verifier {
	return &model.Verifier{
		KDF:       kdf.TestParams(),
		Salt:      []byte("0123456789abcdef"),
		Hash:      []byte("0123456789abcdef0123456789abcdef"),
		CreatedAt: time.Date(2024, 2, 3, 4, 5, 6, 789000, time.UTC),
	}
}

func testRecord(service string, seed byte) model.SealedRecord {
	ts := time.Date(2024, 6, 7, 8, 9, 10, 123456000, time.UTC)
	nonce := make([]byte, 24)
	ct := make([]byte, 40)
	for i := range nonce {
		nonce[i] = seed + byte(i)
	}
	for i := range ct {
		ct[i] = seed ^ byte(i)
	}
	return model.SealedRecord{Service: service, Nonce: nonce, Ciphertext: ct, CreatedAt: ts, UpdatedAt: ts.Add(time.Minute)}
}
