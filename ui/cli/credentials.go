// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/toeirei/passmaster/internal/config"
	"github.com/toeirei/passmaster/internal/i18n"
	"github.com/toeirei/passmaster/internal/logging"
	"github.com/toeirei/passmaster/internal/security"
	"github.com/toeirei/passmaster/internal/session"
	"github.com/toeirei/passmaster/internal/vault"
)

const timeLayout = "2006-01-02 15:04:05"

var errEmptyPassphrase = errors.New("empty master passphrase")

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new vault protected by a master passphrase",
		Long: `Sets the master passphrase of a new vault. The passphrase is asked twice;
after too many mismatches the command gives up. It is never stored, only a
verifier derived from it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, false, a.initVault)
		},
	}
}

func (a *app) initVault(ctx context.Context) error {
	if a.session.Initialized() {
		return session.ErrAlreadyInitialized
	}
	fmt.Fprintln(a.out, i18n.T("init.intro"))
	pass, err := a.prompt.NewSecret(
		i18n.T("prompt.new_master"),
		i18n.T("prompt.confirm_master"),
		i18n.T("init.mismatch"),
		a.cfg.Setup.MaxAttempts,
	)
	if err != nil {
		return err
	}
	defer pass.Zero()
	if pass.Empty() {
		return errEmptyPassphrase
	}
	if st := vault.ValidateStrength(pass); !st.OK {
		fmt.Fprintln(a.out, i18n.T("init.weak_passphrase", requirementList(st.Missing)))
	}
	if err := a.session.Setup(ctx, pass); err != nil {
		return err
	}
	a.writeDefaultConfig()
	fmt.Fprintln(a.out, i18n.T("init.success"))
	return nil
}

// writeDefaultConfig persists the effective settings on first run so the
// user has a file to edit. Failure only warns.
func (a *app) writeDefaultConfig() {
	path, err := config.GetConfigPath(false)
	if err != nil {
		logging.Warnf("could not resolve config path: %v", err)
		return
	}
	if _, err := os.Stat(path); err == nil {
		return
	}
	if err := config.WriteConfigFileTo(&a.cfg, path); err != nil {
		logging.Warnf("could not write default config file: %v", err)
		return
	}
	logging.Infof("wrote default config to %s", path)
}

func newAddCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "add <service>",
		Short: "Add a credential",
		Long: `Prompts for the username and secret of a new service. Secrets that fail the
strength policy need confirmation unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, true, func(ctx context.Context) error {
				return a.addCredential(ctx, args[0], force)
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Store weak secrets without asking")
	return cmd
}

func (a *app) exists(service string) (bool, error) {
	names, err := a.session.List()
	if err != nil {
		return false, err
	}
	return slices.Contains(names, service), nil
}

// acceptStrength prints the strength of secret and reports whether it may be
// stored: strong secrets always, weak ones with force or confirmation.
func (a *app) acceptStrength(secret security.Secret, force bool) (bool, error) {
	st := vault.ValidateStrength(secret)
	printStrength(a, st)
	if st.OK || force {
		return true, nil
	}
	return a.prompt.Confirm(i18n.T("prompt.store_anyway"))
}

func printStrength(a *app, st vault.Strength) {
	if st.OK {
		fmt.Fprintln(a.out, i18n.T("strength.strong"))
		return
	}
	fmt.Fprintln(a.out, i18n.T("strength.weak", requirementList(st.Missing)))
}

func (a *app) addCredential(ctx context.Context, service string, force bool) error {
	if ok, err := a.exists(service); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", vault.ErrDuplicateService, service)
	}
	username, err := a.prompt.Line(i18n.T("prompt.username"))
	if err != nil {
		return err
	}
	secret, err := a.prompt.Secret(i18n.T("prompt.secret"))
	if err != nil {
		return err
	}
	defer secret.Zero()

	ok, err := a.acceptStrength(secret, force)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, i18n.T("cli.not_saved"))
		return nil
	}
	e := vault.Entry{Service: service, Username: username, Secret: secret}
	if err := a.session.Add(ctx, e, true); err != nil {
		return err
	}
	fmt.Fprintln(a.out, i18n.T("cli.add.success", service))
	return nil
}

func newGetCmd(a *app) *cobra.Command {
	var show, copySecret bool
	cmd := &cobra.Command{
		Use:   "get <service>",
		Short: "Show a credential",
		Long: `Prints the service, username, timestamps and secret strength. The secret is
masked unless --show is given. --copy puts it on the clipboard and clears the
clipboard again after clipboard.clear_after.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, true, func(ctx context.Context) error {
				return a.showCredential(ctx, args[0], show, copySecret)
			})
		},
	}
	cmd.Flags().BoolVarP(&show, "show", "s", false, "Print the secret in clear text")
	cmd.Flags().BoolVarP(&copySecret, "copy", "c", false, "Copy the secret to the clipboard")
	return cmd
}

func (a *app) printField(labelID, value string) {
	fmt.Fprintf(a.out, "%-12s %s\n", i18n.T(labelID)+":", value)
}

func (a *app) showCredential(ctx context.Context, service string, show, copySecret bool) error {
	rec, err := a.session.Get(ctx, service)
	if err != nil {
		return err
	}
	defer rec.Wipe()

	a.printField("field.service", rec.Service)
	a.printField("field.username", rec.Username)
	if show {
		a.printField("field.secret", string(rec.Secret.Bytes()))
	} else {
		a.printField("field.secret", "********")
	}
	a.printField("field.created", rec.CreatedAt.Local().Format(timeLayout))
	a.printField("field.updated", rec.UpdatedAt.Local().Format(timeLayout))
	printStrength(a, vault.ValidateStrength(rec.Secret))

	if copySecret {
		return a.copyToClipboard(ctx, rec.Secret)
	}
	return nil
}

// copyToClipboard copies secret and, when a clear delay is configured,
// blocks until it is cleared again. Cancellation clears immediately.
func (a *app) copyToClipboard(ctx context.Context, secret security.Secret) error {
	clip := newClipboard()
	if err := clip.WriteAll(string(secret.Bytes())); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	d := a.cfg.Clipboard.ClearAfter
	if d <= 0 {
		fmt.Fprintln(a.out, i18n.T("cli.get.copied"))
		return nil
	}
	fmt.Fprintln(a.out, i18n.T("cli.get.copied_clears", d.String()))
	waitErr := sleepCtx(ctx, d)
	if err := clip.WriteAll(""); err != nil {
		return fmt.Errorf("clear clipboard: %w", err)
	}
	fmt.Fprintln(a.out, i18n.T("cli.get.cleared"))
	return waitErr
}

func newUpdateCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "update <service>",
		Short: "Change the secret or username of a credential",
		Long:  `Prompts for a new secret and a new username. Leave either blank to keep it.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, true, func(ctx context.Context) error {
				return a.updateCredential(ctx, args[0], force)
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Store weak secrets without asking")
	return cmd
}

func (a *app) updateCredential(ctx context.Context, service string, force bool) error {
	if ok, err := a.exists(service); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", vault.ErrNotFound, service)
	}
	secret, err := a.prompt.Secret(i18n.T("prompt.new_secret"))
	if err != nil {
		return err
	}
	defer secret.Zero()
	username, err := a.prompt.Line(i18n.T("prompt.new_username"))
	if err != nil {
		return err
	}

	var ch vault.Changes
	if username != "" {
		ch.Username = &username
	}
	if !secret.Empty() {
		ok, err := a.acceptStrength(secret, force)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, i18n.T("cli.not_saved"))
			return nil
		}
		ch.Secret = secret
	}
	if ch.Username == nil && ch.Secret.Empty() {
		fmt.Fprintln(a.out, i18n.T("cli.update.unchanged", service))
		return nil
	}
	if err := a.session.Update(ctx, service, ch, true); err != nil {
		return err
	}
	fmt.Fprintln(a.out, i18n.T("cli.update.success", service))
	return nil
}

func newRemoveCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <service>",
		Aliases: []string{"delete"},
		Short:   "Delete a credential",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, true, func(ctx context.Context) error {
				return a.deleteCredential(ctx, args[0], yes)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (a *app) deleteCredential(ctx context.Context, service string, yes bool) error {
	if ok, err := a.exists(service); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", vault.ErrNotFound, service)
	}
	if !yes {
		ok, err := a.prompt.Confirm(i18n.T("prompt.confirm_delete", service))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, i18n.T("cli.aborted"))
			return nil
		}
	}
	if err := a.session.Delete(ctx, service); err != nil {
		return err
	}
	fmt.Fprintln(a.out, i18n.T("cli.delete.success", service))
	return nil
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all services",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, true, func(context.Context) error {
				return a.listCredentials()
			})
		},
	}
}

func (a *app) listCredentials() error {
	names, err := a.session.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(a.out, i18n.T("cli.list.empty"))
		return nil
	}
	for i, name := range names {
		fmt.Fprintf(a.out, "%d. %s\n", i+1, name)
	}
	fmt.Fprintln(a.out, i18n.T("cli.list.total", len(names)))
	return nil
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find services whose name contains query, ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, true, func(context.Context) error {
				return a.searchCredentials(args[0])
			})
		},
	}
}

func (a *app) searchCredentials(query string) error {
	names, err := a.session.Search(query)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(a.out, i18n.T("cli.search.none", query))
		return nil
	}
	fmt.Fprintln(a.out, i18n.T("cli.search.found", len(names)))
	for _, name := range names {
		fmt.Fprintf(a.out, "  - %s\n", name)
	}
	return nil
}

func newPasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the master passphrase",
		Long: `Re-encrypts every credential under a key derived from the new passphrase.
The records and the new verifier are written in one transaction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, false, a.changePassphrase)
		},
	}
}

func (a *app) changePassphrase(ctx context.Context) error {
	current, err := a.readUnlock(ctx)
	if err != nil {
		return err
	}
	defer current.Zero()

	next, err := a.prompt.NewSecret(
		i18n.T("prompt.new_master"),
		i18n.T("prompt.confirm_master"),
		i18n.T("init.mismatch"),
		a.cfg.Setup.MaxAttempts,
	)
	if err != nil {
		return err
	}
	defer next.Zero()
	if next.Empty() {
		return errEmptyPassphrase
	}
	if st := vault.ValidateStrength(next); !st.OK {
		fmt.Fprintln(a.out, i18n.T("init.weak_passphrase", requirementList(st.Missing)))
	}
	if err := a.session.ChangePassphrase(ctx, current, next); err != nil {
		return err
	}
	fmt.Fprintln(a.out, i18n.T("passwd.success", a.vault.Len()))
	return nil
}
