// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package prompt

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTest(input string) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	return New(strings.NewReader(input), &out), &out
}

func TestLine(t *testing.T) {
	p, out := newTest("  GitHub  \r\nnext\n")
	got, err := p.Line("Service: ")
	require.NoError(t, err)
	assert.Equal(t, "GitHub", got)
	assert.Equal(t, "Service: ", out.String())

	got, err = p.Line("")
	require.NoError(t, err)
	assert.Equal(t, "next", got)

	_, err = p.Line("")
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineWithoutTrailingNewline(t *testing.T) {
	p, _ := newTest("last")
	got, err := p.Line("")
	require.NoError(t, err)
	assert.Equal(t, "last", got)
}

func TestSecretKeepsSpaces(t *testing.T) {
	p, _ := newTest(" pa ss \n")
	s, err := p.Secret("Secret: ")
	require.NoError(t, err)
	assert.Equal(t, " pa ss ", string(s))
}

func TestConfirmRepeatsUntilAnswered(t *testing.T) {
	p, out := newTest("maybe\nY\n")
	ok, err := p.Confirm("Add anyway? (y/n) ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, strings.Count(out.String(), "Add anyway?"))

	p, _ = newTest("no\n")
	ok, err = p.Confirm("?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewSecretMatch(t *testing.T) {
	p, _ := newTest("one\ntwo\nsame\nsame\n")
	s, err := p.NewSecret("New: ", "Again: ", "mismatch", 3)
	require.NoError(t, err)
	assert.Equal(t, "same", string(s))
}

func TestNewSecretGivesUp(t *testing.T) {
	p, out := newTest("a\nb\nc\nd\n")
	_, err := p.NewSecret("New: ", "Again: ", "mismatch", 2)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.ErrorIs(t, err, ErrMismatch)
	assert.Equal(t, 2, strings.Count(out.String(), "mismatch"))
}

func TestNewSecretEOF(t *testing.T) {
	p, _ := newTest("only-one\n")
	_, err := p.NewSecret("New: ", "Again: ", "mismatch", 3)
	assert.ErrorIs(t, err, io.EOF)
}
