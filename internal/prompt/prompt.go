// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package prompt reads answers from the console. Secrets are read without
// echo when the input is a terminal and are returned as wipeable buffers.
package prompt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/toeirei/passmaster/internal/security"
	"golang.org/x/term"
)

var (
	// ErrMismatch is returned when a confirmation does not match.
	ErrMismatch = errors.New("prompt: entries do not match")
	// ErrTooManyAttempts is returned when the confirmation loop gives up.
	ErrTooManyAttempts = errors.New("prompt: too many attempts")
)

// Prompter asks questions on out and reads answers from in.
type Prompter struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	isTerm bool
}

// New returns a Prompter. Secrets are read without echo when in is a terminal.
func New(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.isTerm = true
	}
	return p
}

// Stdio returns a Prompter on the process's standard streams.
func Stdio() *Prompter { return New(os.Stdin, os.Stdout) }

// Out returns the writer prompts are printed to.
func (p *Prompter) Out() io.Writer { return p.out }

func (p *Prompter) readLineBytes() ([]byte, error) {
	line, err := p.in.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		security.Wipe(line)
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

// Line prints label and returns one trimmed line of input.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	b, err := p.readLineBytes()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Secret prints label and reads a line without echo. The result is not
// trimmed, so leading and trailing spaces are part of the secret.
func (p *Prompter) Secret(label string) (security.Secret, error) {
	fmt.Fprint(p.out, label)
	if p.isTerm {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return nil, err
		}
		return security.Secret(b), nil
	}
	b, err := p.readLineBytes()
	if err != nil {
		return nil, err
	}
	s := security.FromBytes(b)
	security.Wipe(b)
	return s, nil
}

// Confirm asks a yes/no question until it gets y/yes or n/no.
func (p *Prompter) Confirm(label string) (bool, error) {
	for {
		answer, err := p.Line(label)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes", "j", "ja":
			return true, nil
		case "n", "no", "nein":
			return false, nil
		}
	}
}

// NewSecret reads a secret twice and returns it when both entries match.
// After a mismatch it prints mismatchMsg and retries, up to maxAttempts
// rounds in total, then fails with ErrTooManyAttempts.
func (p *Prompter) NewSecret(label, confirmLabel, mismatchMsg string, maxAttempts int) (security.Secret, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		first, err := p.Secret(label)
		if err != nil {
			return nil, err
		}
		second, err := p.Secret(confirmLabel)
		if err != nil {
			first.Zero()
			return nil, err
		}
		match := first.Equal(second)
		second.Zero()
		if match {
			return first, nil
		}
		first.Zero()
		fmt.Fprintln(p.out, mismatchMsg)
	}
	return nil, fmt.Errorf("%w: %w", ErrTooManyAttempts, ErrMismatch)
}
