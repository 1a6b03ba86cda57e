// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package vault

import (
	"unicode"
	"unicode/utf8"
)

// MinSecretLen is the minimum number of characters of a strong secret.
const MinSecretLen = 8

// Requirement names one rule of the strength policy.
type Requirement string

const (
	ReqLength    Requirement = "at least 8 characters"
	ReqUppercase Requirement = "an uppercase letter"
	ReqLowercase Requirement = "a lowercase letter"
	ReqDigit     Requirement = "a number"
	ReqSymbol    Requirement = "a special character"
)

// Strength is the result of checking a secret against the policy.
type Strength struct {
	OK      bool
	Missing []Requirement
}

// ValidateStrength checks secret against the policy. Length is counted in
// characters, and a symbol is any character that is neither letter nor digit.
// It never copies or retains the secret.
func ValidateStrength(secret []byte) Strength {
	var n int
	var upper, lower, digit, symbol bool
	for b := secret; len(b) > 0; {
		r, size := utf8.DecodeRune(b)
		b = b[size:]
		n++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			symbol = true
		}
	}

	var missing []Requirement
	if n < MinSecretLen {
		missing = append(missing, ReqLength)
	}
	if !upper {
		missing = append(missing, ReqUppercase)
	}
	if !lower {
		missing = append(missing, ReqLowercase)
	}
	if !digit {
		missing = append(missing, ReqDigit)
	}
	if !symbol {
		missing = append(missing, ReqSymbol)
	}
	return Strength{OK: len(missing) == 0, Missing: missing}
}

func checkStrength(secret []byte) error {
	if s := ValidateStrength(secret); !s.OK {
		return &WeakSecretError{Missing: s.Missing}
	}
	return nil
}
