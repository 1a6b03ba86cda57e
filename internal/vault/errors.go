// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package vault

import (
	"errors"
	"strings"
)

var (
	// ErrNotAuthenticated is returned when an operation runs without a session key.
	ErrNotAuthenticated = errors.New("vault: not authenticated")
	// ErrDuplicateService is returned when adding a service that already exists.
	ErrDuplicateService = errors.New("vault: service already exists")
	// ErrNotFound is returned when the named service does not exist.
	ErrNotFound = errors.New("vault: service not found")
	// ErrIntegrity is returned when a sealed record fails authentication.
	// It signals tampering, corruption or a wrong key.
	ErrIntegrity = errors.New("vault: record failed integrity check")
	// ErrWeakSecret is wrapped by *WeakSecretError.
	ErrWeakSecret = errors.New("vault: secret does not meet strength policy")
	// ErrInvalidService is returned for an empty service name.
	ErrInvalidService = errors.New("vault: invalid service name")
)

// WeakSecretError lists the strength requirements a secret did not meet.
type WeakSecretError struct {
	Missing []Requirement
}

func (e *WeakSecretError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		parts[i] = string(m)
	}
	return ErrWeakSecret.Error() + ": missing " + strings.Join(parts, ", ")
}

func (e *WeakSecretError) Unwrap() error { return ErrWeakSecret }
