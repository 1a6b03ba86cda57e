// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package storage

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicate is returned when attempting to insert a row that already exists.
	ErrDuplicate = errors.New("storage: duplicate record")
	// ErrUnsupportedDB is returned for an unknown database type.
	ErrUnsupportedDB = errors.New("storage: unsupported database type")
)

// MapDBError inspects low-level driver errors and maps constraint violations
// to ErrDuplicate. The match is string based so no driver package needs to be
// imported here.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	le := strings.ToLower(err.Error())
	// MySQL duplicate entry, Postgres unique violation (23505), SQLite unique constraint
	if strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "1062") {
		return ErrDuplicate
	}
	return err
}
