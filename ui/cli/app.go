// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/passmaster/internal/config"
	"github.com/toeirei/passmaster/internal/i18n"
	"github.com/toeirei/passmaster/internal/logging"
	"github.com/toeirei/passmaster/internal/prompt"
	"github.com/toeirei/passmaster/internal/security"
	"github.com/toeirei/passmaster/internal/session"
	"github.com/toeirei/passmaster/internal/storage"
	"github.com/toeirei/passmaster/internal/tui"
	"github.com/toeirei/passmaster/internal/vault"
)

// newClipboard returns the clipboard used by get --copy. Tests replace it.
var newClipboard = tui.SystemClipboard

// app is the state shared by the commands of one root command.
type app struct {
	cfg     config.Config
	out     io.Writer
	prompt  *prompt.Prompter
	db      *storage.Store
	vault   *vault.Store
	session *session.Controller
}

// setup loads configuration and initializes logging and i18n.
func (a *app) setup(cmd *cobra.Command, opts *rootOptions) error {
	i18n.Init("en")
	logging.SetDebug(opts.verbose)
	storage.SetDebug(opts.verbose)

	cfgPath, err := configPathFromFlag(opts.cfgFile)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cmd, cfgPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	a.cfg = cfg
	i18n.Init(cfg.Language)

	a.out = cmd.OutOrStdout()
	a.prompt = prompt.New(cmd.InOrStdin(), a.out)
	logging.Debugf("using %s database %s", cfg.Database.Type, cfg.Database.Dsn)
	return nil
}

// configPathFromFlag validates an explicit --config value.
func configPathFromFlag(path string) (*string, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// open connects to storage and seeds the vault and session from it.
func (a *app) open(ctx context.Context) error {
	if a.cfg.Database.Type == storage.SQLite && !strings.Contains(a.cfg.Database.Dsn, "mode=memory") {
		dir := filepath.Dir(strings.TrimPrefix(a.cfg.Database.Dsn, "file:"))
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("could not create database directory %s: %w", dir, err)
		}
	}
	db, err := storage.Open(ctx, a.cfg.Database.Type, a.cfg.Database.Dsn)
	if err != nil {
		return err
	}
	snap, err := db.Load(ctx)
	if err != nil {
		_ = db.Close()
		return err
	}

	store := vault.New(vault.WithJournal(db))
	if err := store.Load(snap.Records); err != nil {
		_ = db.Close()
		return err
	}
	a.db = db
	a.vault = store
	a.session = session.New(store, snap.Verifier,
		session.WithKDFParams(a.cfg.KDF.Params()),
		session.WithPolicy(session.Policy{
			Threshold: a.cfg.Lockout.Threshold,
			BaseDelay: a.cfg.Lockout.BaseDelay,
			MaxDelay:  a.cfg.Lockout.MaxDelay,
		}),
		session.WithAuditWriter(db),
		session.WithVerifierStore(db),
	)
	return nil
}

// close locks the session and releases storage.
func (a *app) close() {
	if a.session != nil {
		_ = a.session.Close()
		a.session = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logging.Warnf("closing database: %v", err)
		}
		a.db = nil
	}
}

// run opens the vault, optionally unlocks it, and runs fn.
func (a *app) run(cmd *cobra.Command, unlock bool, fn func(ctx context.Context) error) error {
	ctx := cmd.Context()
	if err := a.open(ctx); err != nil {
		return err
	}
	defer a.close()
	if unlock {
		if err := a.unlock(ctx); err != nil {
			return err
		}
	}
	return fn(ctx)
}

func (a *app) unlock(ctx context.Context) error {
	pass, err := a.readUnlock(ctx)
	pass.Zero()
	return err
}

// readUnlock asks for the master passphrase until it unlocks the session and
// returns the accepted passphrase. Cooldowns are waited out.
func (a *app) readUnlock(ctx context.Context) (security.Secret, error) {
	if !a.session.Initialized() {
		return nil, session.ErrNotInitialized
	}
	for {
		if d := a.session.Cooldown(); d > 0 {
			fmt.Fprintln(a.out, i18n.T("unlock.cooldown", roundUp(d).String()))
			if err := sleepCtx(ctx, d); err != nil {
				return nil, err
			}
		}
		pass, err := a.prompt.Secret(i18n.T("prompt.master_passphrase"))
		if err != nil {
			return nil, err
		}
		err = a.session.Unlock(ctx, pass)
		switch {
		case err == nil:
			return pass, nil
		case errors.Is(err, session.ErrInvalidPassphrase):
			fmt.Fprintln(a.out, i18n.T("unlock.invalid"))
		case errors.Is(err, session.ErrCooldown):
		default:
			pass.Zero()
			return nil, err
		}
		pass.Zero()
	}
}

func (a *app) runBrowser(cmd *cobra.Command) error {
	return a.run(cmd, true, func(ctx context.Context) error {
		locked, err := tui.Run(ctx, a.session, tui.Options{ClearAfter: a.cfg.Clipboard.ClearAfter})
		if err != nil {
			return err
		}
		if locked {
			fmt.Fprintln(a.out, i18n.T("session.locked"))
		}
		return nil
	})
}

func roundUp(d time.Duration) time.Duration {
	if r := d.Round(time.Second); r >= d {
		return r
	}
	return d.Truncate(time.Second) + time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
