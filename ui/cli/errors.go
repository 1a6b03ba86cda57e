// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"io"
	"strings"

	"github.com/toeirei/passmaster/internal/backup"
	"github.com/toeirei/passmaster/internal/i18n"
	"github.com/toeirei/passmaster/internal/prompt"
	"github.com/toeirei/passmaster/internal/session"
	"github.com/toeirei/passmaster/internal/storage"
	"github.com/toeirei/passmaster/internal/vault"
)

// localizedError carries a translated message for err.
type localizedError struct {
	msg string
	err error
}

func (e *localizedError) Error() string { return e.msg }
func (e *localizedError) Unwrap() error { return e.err }

func localize(err error) error {
	if err == nil {
		return nil
	}
	return &localizedError{msg: describe(err), err: err}
}

var requirementIDs = map[vault.Requirement]string{
	vault.ReqLength:    "strength.req.length",
	vault.ReqUppercase: "strength.req.uppercase",
	vault.ReqLowercase: "strength.req.lowercase",
	vault.ReqDigit:     "strength.req.digit",
	vault.ReqSymbol:    "strength.req.symbol",
}

func requirementList(missing []vault.Requirement) string {
	parts := make([]string, len(missing))
	for i, r := range missing {
		parts[i] = i18n.T(requirementIDs[r])
	}
	return strings.Join(parts, ", ")
}

// describe returns the user-facing text for err in the active language.
func describe(err error) string {
	var weak *vault.WeakSecretError
	var cooldown *session.CooldownError
	switch {
	case errors.Is(err, vault.ErrIntegrity):
		return i18n.T("error.integrity")
	case errors.As(err, &weak):
		return i18n.T("error.weak_secret", requirementList(weak.Missing))
	case errors.As(err, &cooldown):
		return i18n.T("error.cooldown", roundUp(cooldown.Remaining).String())
	case errors.Is(err, vault.ErrDuplicateService):
		return i18n.T("error.duplicate")
	case errors.Is(err, vault.ErrNotFound):
		return i18n.T("error.not_found")
	case errors.Is(err, vault.ErrInvalidService):
		return i18n.T("error.invalid_service")
	case errors.Is(err, vault.ErrNotAuthenticated):
		return i18n.T("error.locked")
	case errors.Is(err, session.ErrNotInitialized):
		return i18n.T("error.not_initialized")
	case errors.Is(err, session.ErrAlreadyInitialized):
		return i18n.T("error.already_initialized")
	case errors.Is(err, session.ErrInvalidPassphrase):
		return i18n.T("error.invalid_passphrase")
	case errors.Is(err, prompt.ErrTooManyAttempts):
		return i18n.T("error.too_many_attempts")
	case errors.Is(err, errEmptyPassphrase):
		return i18n.T("error.empty_passphrase")
	case errors.Is(err, io.EOF):
		return i18n.T("error.input_closed")
	case errors.Is(err, storage.ErrUnsupportedDB):
		return i18n.T("error.unsupported_db", err.Error())
	case errors.Is(err, backup.ErrUnsupportedVersion):
		return i18n.T("error.backup_version")
	}
	return i18n.T("error.generic", err.Error())
}
