// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toeirei/passmaster/internal/i18n"
	"github.com/toeirei/passmaster/internal/security"
	"github.com/toeirei/passmaster/internal/vault"
)

type fakeVault struct {
	records map[string]vault.Record
	broken  map[string]bool
	locked  bool
}

func newFakeVault() *fakeVault {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	v := &fakeVault{records: map[string]vault.Record{}, broken: map[string]bool{}}
	for _, r := range []struct{ service, user, secret string }{
		{"GitHub", "octocat", "Gh-Secret-1!"},
		{"GitLab", "tanuki", "Gl-Secret-2!"},
		{"Mail", "me@example.com", "Mail-Secret-3!"},
	} {
		v.records[r.service] = vault.Record{Service: r.service, Username: r.user, Secret: security.FromString(r.secret), CreatedAt: ts, UpdatedAt: ts}
	}
	return v
}

func (f *fakeVault) Search(q string) ([]string, error) {
	if f.locked {
		return nil, vault.ErrNotAuthenticated
	}
	var out []string
	for name := range f.records {
		if strings.Contains(strings.ToLower(name), strings.ToLower(q)) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeVault) Get(_ context.Context, service string) (vault.Record, error) {
	if f.broken[service] {
		return vault.Record{}, fmt.Errorf("%w: %s", vault.ErrIntegrity, service)
	}
	r, ok := f.records[service]
	if !ok {
		return vault.Record{}, vault.ErrNotFound
	}
	r.Secret = r.Secret.Clone()
	return r, nil
}

func (f *fakeVault) Lock() { f.locked = true }

type fakeClipboard struct{ writes []string }

func (c *fakeClipboard) WriteAll(s string) error {
	c.writes = append(c.writes, s)
	return nil
}

func (c *fakeClipboard) last() string {
	if len(c.writes) == 0 {
		return ""
	}
	return c.writes[len(c.writes)-1]
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func newTestModel(t *testing.T) (*Model, *fakeVault, *fakeClipboard) {
	t.Helper()
	i18n.Init("en")
	v := newFakeVault()
	clip := &fakeClipboard{}
	m := New(context.Background(), v, Options{ClearAfter: 20 * time.Second, Clipboard: clip})
	return m, v, clip
}

func press(t *testing.T, m *Model, msgs ...tea.Msg) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		require.Same(t, m, next)
	}
	return cmd
}

func TestListShowsSortedServices(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.Equal(t, []string{"GitHub", "GitLab", "Mail"}, m.services)

	view := m.View()
	assert.Contains(t, view, "GitHub")
	assert.Contains(t, view, "Mail")
	assert.NotContains(t, view, "Gh-Secret-1!")
}

func TestNavigationAndDetail(t *testing.T) {
	m, _, _ := newTestModel(t)

	press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, m.detail)
	assert.Equal(t, "GitLab", m.detail.Service)

	view := m.View()
	assert.Contains(t, view, "tanuki")
	assert.Contains(t, view, maskedText)
	assert.NotContains(t, view, "Gl-Secret-2!")

	press(t, m, runes("r"))
	assert.Contains(t, m.View(), "Gl-Secret-2!")

	rec := m.detail
	press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.detail)
	assert.Equal(t, make([]byte, len("Gl-Secret-2!")), rec.Secret.Bytes())
}

func TestCursorStaysInBounds(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor)
	press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m.cursor)
}

func TestFilterNarrowsList(t *testing.T) {
	m, _, _ := newTestModel(t)

	press(t, m, runes("/"))
	require.True(t, m.filtering)
	press(t, m, runes("g"), runes("i"), runes("t"))
	assert.Equal(t, []string{"GitHub", "GitLab"}, m.services)

	// Typed characters go to the filter, not to the key bindings.
	press(t, m, runes("q"))
	assert.Empty(t, m.services)
	assert.Contains(t, m.View(), i18n.T("tui.no_matches"))

	press(t, m, tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.filtering)
	assert.Equal(t, []string{"GitHub", "GitLab"}, m.services)

	press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, m.services, 3)
}

func TestCopyAndTimedClear(t *testing.T) {
	m, _, clip := newTestModel(t)

	cmd := press(t, m, runes("c"))
	require.NotNil(t, cmd)
	assert.Equal(t, "Gh-Secret-1!", clip.last())
	assert.True(t, m.copyPending)

	// A copy from an earlier generation does not clear the newer one.
	press(t, m, clearClipboardMsg{gen: m.copyGen - 1})
	assert.Equal(t, "Gh-Secret-1!", clip.last())

	press(t, m, clearClipboardMsg{gen: m.copyGen})
	assert.Equal(t, "", clip.last())
	assert.False(t, m.copyPending)
	assert.Contains(t, m.View(), i18n.T("tui.clipboard_cleared"))
}

func TestQuitClearsPendingCopy(t *testing.T) {
	m, _, clip := newTestModel(t)
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes("c"))
	require.Equal(t, "Gh-Secret-1!", clip.last())

	cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, "", clip.last())
	assert.Nil(t, m.detail)
}

func TestLockKeyLocksAndQuits(t *testing.T) {
	m, v, _ := newTestModel(t)
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, v.locked)
	assert.True(t, m.Locked())
	assert.Nil(t, m.detail)
	assert.Empty(t, m.View())
}

func TestIntegrityFailureIsShown(t *testing.T) {
	m, v, _ := newTestModel(t)
	v.broken["GitHub"] = true

	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, m.detail)
	assert.Contains(t, m.View(), i18n.T("tui.error.integrity"))
}

func TestEmptyVault(t *testing.T) {
	i18n.Init("en")
	m := New(context.Background(), &fakeVault{records: map[string]vault.Record{}}, Options{Clipboard: &fakeClipboard{}})
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes("c"))
	assert.Nil(t, m.detail)
	assert.Contains(t, m.View(), i18n.T("tui.empty"))
}
