// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/toeirei/passmaster/internal/i18n"
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Filter key.Binding
	Reveal key.Binding
	Copy   key.Binding
	Back   key.Binding
	Lock   key.Binding
	Quit   key.Binding
}

var _ help.KeyMap = keyMap{}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Filter, k.Reveal, k.Copy, k.Lock, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Back},
		{k.Filter, k.Reveal, k.Copy},
		{k.Lock, k.Quit},
	}
}

// newKeyMap builds the bindings with help text in the current language.
func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", i18n.T("tui.help.up")),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", i18n.T("tui.help.down")),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", i18n.T("tui.help.open")),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", i18n.T("tui.help.filter")),
		),
		Reveal: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", i18n.T("tui.help.reveal")),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", i18n.T("tui.help.copy")),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", i18n.T("tui.help.back")),
		),
		Lock: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", i18n.T("tui.help.lock")),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", i18n.T("tui.help.quit")),
		),
	}
}
