// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateStrength(t *testing.T) {
	tests := []struct {
		in      string
		missing []Requirement
	}{
		{"abc", []Requirement{ReqLength, ReqUppercase, ReqDigit, ReqSymbol}},
		{"Abcdef1!", nil},
		{"", []Requirement{ReqLength, ReqUppercase, ReqLowercase, ReqDigit, ReqSymbol}},
		{"ABCDEFGH", []Requirement{ReqLowercase, ReqDigit, ReqSymbol}},
		{"abcdefg1", []Requirement{ReqUppercase, ReqSymbol}},
		{"Abcdefg 1", nil},
		// counted in characters, not bytes
		{"Äöü1!ab", []Requirement{ReqLength}},
		{"Äöü1!abc", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ValidateStrength([]byte(tt.in))
			assert.Equal(t, tt.missing, got.Missing)
			assert.Equal(t, len(tt.missing) == 0, got.OK)
		})
	}
}

func TestWeakSecretErrorMessage(t *testing.T) {
	err := &WeakSecretError{Missing: []Requirement{ReqLength, ReqDigit}}
	assert.ErrorIs(t, err, ErrWeakSecret)
	assert.Contains(t, err.Error(), "at least 8 characters, a number")
}
