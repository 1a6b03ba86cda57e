// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui is the full-screen credential browser. It lists service names,
// filters them as you type and opens one credential at a time. Secrets stay
// masked until revealed and copies to the clipboard are cleared after a delay.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/passmaster/internal/i18n"
	"github.com/toeirei/passmaster/internal/vault"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	maskedText = "••••••••"
)

// Vault is what the browser needs from an unlocked session.
type Vault interface {
	Search(query string) ([]string, error)
	Get(ctx context.Context, service string) (vault.Record, error)
	Lock()
}

// Clipboard is the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// SystemClipboard returns the clipboard of the running desktop session.
func SystemClipboard() Clipboard { return systemClipboard{} }

// Options configures the browser.
type Options struct {
	// ClearAfter is how long a copied secret stays on the clipboard. Zero
	// disables the timed clear.
	ClearAfter time.Duration
	// Clipboard defaults to SystemClipboard.
	Clipboard Clipboard
}

// clearClipboardMsg fires when the copy with the same generation expires.
type clearClipboardMsg struct{ gen int }

// Model is the bubbletea model of the browser.
type Model struct {
	ctx        context.Context
	vault      Vault
	clip       Clipboard
	clearAfter time.Duration

	keys      keyMap
	help      help.Model
	filter    textinput.Model
	filtering bool

	services []string
	cursor   int

	detail   *vault.Record
	revealed bool

	copyGen     int
	copyPending bool

	status string
	err    error
	locked bool
	width  int
}

// New returns a browser over v with the service list already loaded.
func New(ctx context.Context, v Vault, opts Options) *Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = i18n.T("tui.filter_placeholder")
	ti.CharLimit = 128

	clip := opts.Clipboard
	if clip == nil {
		clip = SystemClipboard()
	}
	m := &Model{
		ctx:        ctx,
		vault:      v,
		clip:       clip,
		clearAfter: opts.ClearAfter,
		keys:       newKeyMap(),
		help:       help.New(),
		filter:     ti,
	}
	m.refresh()
	return m
}

// Locked reports whether the user locked the session from the browser.
func (m *Model) Locked() bool { return m.locked }

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) refresh() {
	names, err := m.vault.Search(m.filter.Value())
	if err != nil {
		m.err = err
		return
	}
	m.services = names
	if m.cursor >= len(names) {
		m.cursor = max(len(names)-1, 0)
	}
}

func (m *Model) selected() (string, bool) {
	if len(m.services) == 0 {
		return "", false
	}
	return m.services[m.cursor], true
}

func (m *Model) closeDetail() {
	if m.detail != nil {
		m.detail.Wipe()
		m.detail = nil
	}
	m.revealed = false
}

// shutdown wipes what the browser holds before the program exits.
func (m *Model) shutdown() {
	m.closeDetail()
	if m.copyPending {
		_ = m.clip.WriteAll("")
		m.copyPending = false
	}
}

func (m *Model) open(service string) (vault.Record, bool) {
	rec, err := m.vault.Get(m.ctx, service)
	if err != nil {
		m.setError(err)
		return vault.Record{}, false
	}
	return rec, true
}

func (m *Model) setError(err error) {
	m.status = ""
	switch {
	case errors.Is(err, vault.ErrIntegrity):
		m.err = errors.New(i18n.T("tui.error.integrity"))
	case errors.Is(err, vault.ErrNotAuthenticated):
		m.err = errors.New(i18n.T("tui.error.locked"))
	default:
		m.err = err
	}
}

func (m *Model) copySecret(rec vault.Record) tea.Cmd {
	if err := m.clip.WriteAll(string(rec.Secret.Bytes())); err != nil {
		m.setError(fmt.Errorf("%s: %w", i18n.T("tui.error.clipboard"), err))
		return nil
	}
	m.err = nil
	m.copyGen++
	if m.clearAfter <= 0 {
		m.status = i18n.T("tui.copied")
		return nil
	}
	m.copyPending = true
	m.status = i18n.T("tui.copied_clears", m.clearAfter.String())
	gen := m.copyGen
	return tea.Tick(m.clearAfter, func(time.Time) tea.Msg { return clearClipboardMsg{gen: gen} })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case clearClipboardMsg:
		if msg.gen == m.copyGen && m.copyPending {
			m.copyPending = false
			if err := m.clip.WriteAll(""); err != nil {
				m.setError(err)
			} else {
				m.status = i18n.T("tui.clipboard_cleared")
			}
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.shutdown()
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.Lock) {
			m.shutdown()
			m.vault.Lock()
			m.locked = true
			return m, tea.Quit
		}
		if m.filtering {
			return m.updateFilter(msg)
		}
		if m.detail != nil {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}
	before := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.cursor = 0
		m.refresh()
	}
	return m, cmd
}

func (m *Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.closeDetail()
		m.status = ""
	case key.Matches(msg, m.keys.Reveal):
		m.revealed = !m.revealed
	case key.Matches(msg, m.keys.Copy):
		return m, m.copySecret(*m.detail)
	}
	return m, nil
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.services)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m, m.filter.Focus()
	case key.Matches(msg, m.keys.Back):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.cursor = 0
			m.refresh()
		}
		m.err = nil
		m.status = ""
	case key.Matches(msg, m.keys.Open):
		if name, ok := m.selected(); ok {
			if rec, ok := m.open(name); ok {
				m.err = nil
				m.status = ""
				m.detail = &rec
				m.revealed = false
			}
		}
	case key.Matches(msg, m.keys.Copy):
		if name, ok := m.selected(); ok {
			if rec, ok := m.open(name); ok {
				cmd := m.copySecret(rec)
				rec.Wipe()
				return m, cmd
			}
		}
	}
	return m, nil
}

func (m *Model) View() string {
	if m.locked {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(i18n.T("tui.title")))
	b.WriteString("\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}

	if m.detail != nil {
		b.WriteString(m.detailView())
	} else {
		b.WriteString(m.listView())
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(successStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return docStyle.Render(b.String())
}

func (m *Model) listView() string {
	if len(m.services) == 0 {
		if m.filter.Value() != "" {
			return helpStyle.Render(i18n.T("tui.no_matches"))
		}
		return helpStyle.Render(i18n.T("tui.empty"))
	}
	var b strings.Builder
	for i, name := range m.services {
		if i == m.cursor {
			b.WriteString(selectedItemStyle.Render("▸ " + name))
		} else {
			b.WriteString(itemStyle.Render(name))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(i18n.T("tui.count", len(m.services))))
	return b.String()
}

func (m *Model) detailView() string {
	rec := m.detail
	secret := maskedText
	if m.revealed {
		secret = secretStyle.Render(string(rec.Secret.Bytes()))
	}
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
	}
	rows := []string{
		row(i18n.T("field.service"), rec.Service),
		row(i18n.T("field.username"), rec.Username),
		row(i18n.T("field.secret"), secret),
		row(i18n.T("field.created"), rec.CreatedAt.Local().Format(timeLayout)),
		row(i18n.T("field.updated"), rec.UpdatedAt.Local().Format(timeLayout)),
	}
	return detailBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// Run shows the browser until the user quits or locks. It reports whether
// the session was locked from inside the browser.
func Run(ctx context.Context, v Vault, opts Options) (bool, error) {
	m := New(ctx, v, opts)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		m.shutdown()
		return m.locked, err
	}
	return m.locked, nil
}
