// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toeirei/passmaster/internal/i18n"
	"github.com/toeirei/passmaster/internal/kdf"
	"github.com/toeirei/passmaster/internal/prompt"
	"github.com/toeirei/passmaster/internal/session"
	"github.com/toeirei/passmaster/internal/tui"
	"github.com/toeirei/passmaster/internal/vault"
)

const (
	master    = "Master-Pass-1!"
	newMaster = "New-Master-2@"
	ghSecret  = "Gh-Secret-1!"
)

type fakeClipboard struct{ writes []string }

func (c *fakeClipboard) WriteAll(s string) error {
	c.writes = append(c.writes, s)
	return nil
}

type testEnv struct {
	t    *testing.T
	dir  string
	dsn  string
	clip *fakeClipboard
}

// newTestEnv isolates configuration in a temp dir, uses cheap KDF settings
// and short delays, and points the CLI at a fresh SQLite file. A file is used
// instead of an in-memory DSN because the vault must outlive each command.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	p := kdf.TestParams()
	t.Setenv("PASSMASTER_KDF_ALGORITHM", p.Algorithm)
	t.Setenv("PASSMASTER_KDF_TIME", strconv.Itoa(int(p.Time)))
	t.Setenv("PASSMASTER_KDF_MEMORY_KIB", strconv.Itoa(int(p.MemoryKiB)))
	t.Setenv("PASSMASTER_KDF_THREADS", strconv.Itoa(int(p.Threads)))
	t.Setenv("PASSMASTER_LOCKOUT_BASE_DELAY", "1ms")
	t.Setenv("PASSMASTER_LOCKOUT_MAX_DELAY", "5ms")
	t.Setenv("PASSMASTER_CLIPBOARD_CLEAR_AFTER", "1ms")

	clip := &fakeClipboard{}
	orig := newClipboard
	newClipboard = func() tui.Clipboard { return clip }
	t.Cleanup(func() { newClipboard = orig })

	return &testEnv{t: t, dir: dir, dsn: filepath.Join(dir, "data", "vault.db"), clip: clip}
}

// run executes one command with stdin and returns everything it printed.
func (e *testEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--database.dsn="+e.dsn))
	err := cmd.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(stdin string, args ...string) string {
	e.t.Helper()
	out, err := e.run(stdin, args...)
	require.NoError(e.t, err, out)
	return out
}

func lines(in ...string) string { return strings.Join(in, "\n") + "\n" }

// initialized returns an env with a vault holding GitHub.
func initialized(t *testing.T) *testEnv {
	t.Helper()
	e := newTestEnv(t)
	e.mustRun(lines(master, master), "init")
	e.mustRun(lines(master, "octocat", ghSecret), "add", "GitHub")
	return e
}

func TestInitAddGetList(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun(lines(master, master), "init")
	assert.Contains(t, out, "Master passphrase set.")
	assert.NotContains(t, out, master)

	out = e.mustRun(lines(master, "octocat", ghSecret), "add", "GitHub")
	assert.Contains(t, out, "Password strength: strong.")
	assert.Contains(t, out, "Added credential for GitHub.")

	out = e.mustRun(lines(master), "get", "GitHub")
	assert.Contains(t, out, "octocat")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, ghSecret)

	out = e.mustRun(lines(master), "get", "GitHub", "--show")
	assert.Contains(t, out, ghSecret)

	out = e.mustRun(lines(master), "list")
	assert.Contains(t, out, "1. GitHub")
	assert.Contains(t, out, "Total: 1 credential(s)")

	cfgPath := filepath.Join(e.dir, "config", "passmaster", "passmaster.yaml")
	info, err := os.Stat(cfgPath)
	require.NoError(t, err, "init writes the default config")
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestInitMismatchGivesUp(t *testing.T) {
	e := newTestEnv(t)
	t.Setenv("PASSMASTER_SETUP_MAX_ATTEMPTS", "2")

	out, err := e.run(lines("one-Pass-1!", "two-Pass-1!", "three-Pass-1!", "four-Pass-1!"), "init")
	require.ErrorIs(t, err, prompt.ErrTooManyAttempts)
	assert.Equal(t, 2, strings.Count(out, "Passphrases don't match."))

	_, err = e.run("", "list")
	require.ErrorIs(t, err, session.ErrNotInitialized)
}

func TestInitTwiceFails(t *testing.T) {
	e := initialized(t)
	_, err := e.run(lines(master, master), "init")
	require.ErrorIs(t, err, session.ErrAlreadyInitialized)
}

func TestCommandsRequireInit(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run(lines(master), "list")
	require.ErrorIs(t, err, session.ErrNotInitialized)

	i18n.Init("en")
	assert.Equal(t, "No vault found. Run 'passmaster init' first.", localize(err).Error())
}

func TestWeakSecretNeedsConfirmation(t *testing.T) {
	e := initialized(t)

	out := e.mustRun(lines(master, "me", "abc", "n"), "add", "Weak")
	assert.Contains(t, out, "weak (missing")
	assert.Contains(t, out, "Credential not saved.")
	assert.NotContains(t, e.mustRun(lines(master), "list"), "Weak")

	out = e.mustRun(lines(master, "me", "abc", "maybe", "y"), "add", "Weak")
	assert.Contains(t, out, "Added credential for Weak.")

	out = e.mustRun(lines(master, "me", "abc"), "add", "Forced", "--force")
	assert.Contains(t, out, "Added credential for Forced.")
	assert.NotContains(t, out, "Store anyway?")
}

func TestAddDuplicate(t *testing.T) {
	e := initialized(t)
	_, err := e.run(lines(master), "add", "GitHub")
	require.ErrorIs(t, err, vault.ErrDuplicateService)

	// service names are case sensitive
	out := e.mustRun(lines(master, "octocat", ghSecret), "add", "github")
	assert.Contains(t, out, "Added credential for github.")
}

func TestWrongPassphraseIsRetried(t *testing.T) {
	e := initialized(t)
	t.Setenv("PASSMASTER_LOCKOUT_BASE_DELAY", "100ms")
	t.Setenv("PASSMASTER_LOCKOUT_MAX_DELAY", "1s")

	out := e.mustRun(lines("wrong", "wrong", "wrong", master), "list")
	assert.Equal(t, 3, strings.Count(out, "Invalid master passphrase."))
	assert.Contains(t, out, "Too many failed attempts.")
	assert.Contains(t, out, "1. GitHub")

	_, err := e.run(lines("wrong"), "list")
	require.ErrorIs(t, err, io.EOF)
}

func TestUpdateKeepsBlankFields(t *testing.T) {
	e := initialized(t)

	out := e.mustRun(lines(master, "", "hubot"), "update", "GitHub")
	assert.Contains(t, out, "Updated credential for GitHub.")
	out = e.mustRun(lines(master), "get", "GitHub", "--show")
	assert.Contains(t, out, "hubot")
	assert.Contains(t, out, ghSecret)

	e.mustRun(lines(master, "New-Secret-9!", ""), "update", "GitHub")
	out = e.mustRun(lines(master), "get", "GitHub", "--show")
	assert.Contains(t, out, "hubot")
	assert.Contains(t, out, "New-Secret-9!")

	out = e.mustRun(lines(master, "", ""), "update", "GitHub")
	assert.Contains(t, out, "Nothing to change for GitHub.")

	_, err := e.run(lines(master), "update", "Nope")
	require.ErrorIs(t, err, vault.ErrNotFound)
}

func TestRemove(t *testing.T) {
	e := initialized(t)

	out := e.mustRun(lines(master, "n"), "rm", "GitHub")
	assert.Contains(t, out, "Aborted.")

	out = e.mustRun(lines(master), "rm", "GitHub", "--yes")
	assert.Contains(t, out, "Deleted credential for GitHub.")

	_, err := e.run(lines(master), "get", "GitHub")
	require.ErrorIs(t, err, vault.ErrNotFound)
	assert.Contains(t, e.mustRun(lines(master), "list"), "No credentials stored yet.")
}

func TestSearch(t *testing.T) {
	e := initialized(t)
	e.mustRun(lines(master, "tanuki", "Gl-Secret-2!"), "add", "GitLab")
	e.mustRun(lines(master, "me", "Mail-Secret-3!"), "add", "Mail")

	out := e.mustRun(lines(master), "search", "GIT")
	assert.Contains(t, out, "Found 2 match(es):")
	assert.Contains(t, out, "  - GitHub\n  - GitLab\n")
	assert.NotContains(t, out, "Mail")

	out = e.mustRun(lines(master), "search", "zzz")
	assert.Contains(t, out, "No services found matching 'zzz'.")
}

func TestGetCopyClearsClipboard(t *testing.T) {
	e := initialized(t)

	out := e.mustRun(lines(master), "get", "GitHub", "--copy")
	assert.Contains(t, out, "Clipboard cleared.")
	assert.NotContains(t, out, ghSecret)
	assert.Equal(t, []string{ghSecret, ""}, e.clip.writes)
}

func TestPasswd(t *testing.T) {
	e := initialized(t)

	out := e.mustRun(lines(master, newMaster, newMaster), "passwd")
	assert.Contains(t, out, "1 credential(s) re-encrypted")

	out = e.mustRun(lines(newMaster), "get", "GitHub", "--show")
	assert.Contains(t, out, ghSecret)

	_, err := e.run(lines(master), "list")
	require.ErrorIs(t, err, io.EOF, "the old passphrase no longer unlocks")
}

func TestBackupAndRestore(t *testing.T) {
	e := initialized(t)

	out := e.mustRun("", "backup", "snap")
	assert.Contains(t, out, "snap.zst")
	_, err := os.Stat(filepath.Join(e.dir, "snap.zst"))
	require.NoError(t, err)

	e.mustRun(lines(master, "me", "Mail-Secret-3!"), "add", "Mail")
	e.mustRun(lines(master, newMaster, newMaster), "passwd")

	// without the current passphrase nothing is replaced
	out, err = e.run(lines(master), "restore", "snap.zst", "--yes")
	require.ErrorIs(t, err, io.EOF)
	assert.Contains(t, out, "Invalid master passphrase.")
	assert.NotContains(t, out, "Vault restored")
	assert.Contains(t, e.mustRun(lines(newMaster), "list"), "Mail")

	// a wrong backup passphrase leaves the vault alone
	_, err = e.run(lines(newMaster, newMaster), "restore", "snap.zst", "--yes")
	require.ErrorIs(t, err, session.ErrInvalidPassphrase)
	assert.Contains(t, e.mustRun(lines(newMaster), "list"), "Mail")

	out = e.mustRun(lines(newMaster, "y", master), "restore", "snap.zst")
	assert.Contains(t, out, "Vault restored with 1 credential(s).")

	out = e.mustRun(lines(master), "list")
	assert.Contains(t, out, "1. GitHub")
	assert.NotContains(t, out, "Mail")
}

func TestRestoreIntoNewVault(t *testing.T) {
	src := initialized(t)
	src.mustRun("", "backup", "snap")
	snap := filepath.Join(src.dir, "snap.zst")

	e := newTestEnv(t)
	out := e.mustRun(lines("y", master), "restore", snap)
	assert.Contains(t, out, "Vault restored with 1 credential(s).")
	assert.Contains(t, e.mustRun(lines(master), "list"), "1. GitHub")
}

func TestShell(t *testing.T) {
	e := initialized(t)

	in := lines(
		master,
		"5",
		"1", "Mail", "me", "Mail-Secret-3!",
		"7",
		"2", master, "Mail",
		"6", "mai",
		"4", "Nope",
		"42",
		"8",
	)
	out := e.mustRun(in, "shell")
	assert.Contains(t, out, "PASSMASTER - Main Menu")
	assert.Contains(t, out, "1. GitHub")
	assert.Contains(t, out, "Added credential for Mail.")
	assert.Contains(t, out, "Vault locked.")
	assert.Contains(t, out, "The vault is locked. Unlock it to continue.")
	assert.Contains(t, out, "Mail-Secret-3!")
	assert.Contains(t, out, "  - Mail")
	assert.Contains(t, out, "No credential found for this service.")
	assert.Contains(t, out, "Invalid choice. Please enter 1-8.")
	assert.Contains(t, out, "Goodbye.")
}

func TestAuditLog(t *testing.T) {
	e := initialized(t)
	e.mustRun(lines("wrong", master), "get", "GitHub")

	out := e.mustRun(lines(master), "audit-log")
	for _, action := range []string{
		session.ActionSetup, session.ActionUnlock, session.ActionUnlockFailed,
		session.ActionAdd, session.ActionView, session.ActionLock,
	} {
		assert.Contains(t, out, action)
	}
	assert.Contains(t, out, "service=GitHub")
	assert.NotContains(t, out, ghSecret)
	assert.NotContains(t, out, master)
}

func TestDBMaintain(t *testing.T) {
	e := initialized(t)
	out := e.mustRun("", "db-maintain", "--timeout", "30")
	assert.Contains(t, out, "Maintenance of the sqlite database completed successfully.")
}

func TestGermanMessages(t *testing.T) {
	e := initialized(t)
	out := e.mustRun(lines(master), "rm", "GitHub", "--yes", "--language=de")
	assert.Contains(t, out, "Zugangsdaten für GitHub gelöscht.")
	i18n.Init("en")
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "version: ")
	assert.Contains(t, out.String(), "commit: ")
}

func TestDescribeErrors(t *testing.T) {
	i18n.Init("en")
	cases := []struct {
		err  error
		want string
	}{
		{vault.ErrIntegrity, "Integrity check failed"},
		{&vault.WeakSecretError{Missing: []vault.Requirement{vault.ReqDigit, vault.ReqSymbol}}, "missing a number, a special character"},
		{&session.CooldownError{Remaining: 1500 * 1e6}, "Try again in 2s."},
		{session.ErrInvalidPassphrase, "Invalid master passphrase."},
		{io.EOF, "Input ended unexpectedly."},
		{assert.AnError, "Error: " + assert.AnError.Error()},
	}
	for _, tc := range cases {
		assert.Contains(t, describe(tc.err), tc.want)
	}
}
