// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/passmaster/internal/backup"
	"github.com/toeirei/passmaster/internal/clock"
	"github.com/toeirei/passmaster/internal/i18n"
	"github.com/toeirei/passmaster/internal/session"
	"github.com/toeirei/passmaster/internal/storage"
	"github.com/toeirei/passmaster/internal/vault"
)

// actionBackup is the audit action written by the backup command.
const actionBackup = "BACKUP"

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup [output-file]",
		Short: "Create a compressed (zstd) JSON backup of the vault",
		Long: `Writes the passphrase verifier and every sealed credential to a single
Zstandard-compressed JSON file. The backup holds no plaintext; restoring it
needs the master passphrase that was current when it was taken.

If an output file is specified, '.zst' will be appended to the name if it's not already present.
If no output file is specified, a default filename 'passmaster-backup-YYYY-MM-DD.json.zst' is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			return a.run(cmd, false, func(ctx context.Context) error {
				return a.backupVault(ctx, name)
			})
		},
	}
}

func (a *app) backupVault(ctx context.Context, name string) error {
	if !a.session.Initialized() {
		return session.ErrNotInitialized
	}
	snap, err := a.db.Load(ctx)
	if err != nil {
		return err
	}
	now := clock.Now()
	filename := backup.Filename(name, now)
	fmt.Fprintln(a.out, i18n.T("backup.starting"))
	if err := backup.WriteFile(filename, backup.New(snap, now)); err != nil {
		return err
	}
	if err := a.db.LogAction(ctx, actionBackup, fmt.Sprintf("records=%d", len(snap.Records))); err != nil {
		return err
	}
	fmt.Fprintln(a.out, i18n.T("backup.success", filename))
	return nil
}

func newRestoreCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <backup-file.zst>",
		Short: "Replace the vault with the contents of a backup",
		Long: `Restores the verifier and every credential from a backup written by
'passmaster backup'. An existing vault must be unlocked with its current master
passphrase first. The backup's master passphrase is then checked and every
record is verified before anything is written; the vault is replaced in a
single transaction.

WARNING: the current credentials are discarded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, false, func(ctx context.Context) error {
				return a.restoreVault(ctx, args[0], yes)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (a *app) restoreVault(ctx context.Context, filename string, yes bool) error {
	if a.session.Initialized() {
		if err := a.unlock(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintln(a.out, i18n.T("restore.starting", filename))
	data, err := backup.ReadFile(filename)
	if err != nil {
		return err
	}
	if !yes {
		ok, err := a.prompt.Confirm(i18n.T("prompt.confirm_restore", len(data.Vault.Records)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, i18n.T("cli.aborted"))
			return nil
		}
	}

	if err := a.verifyBackup(ctx, data); err != nil {
		return err
	}
	if err := a.session.Restore(ctx, data.Vault); err != nil {
		return err
	}
	fmt.Fprintln(a.out, i18n.T("restore.success", len(data.Vault.Records)))
	return nil
}

// verifyBackup unlocks the backup with its own passphrase and opens every
// record once, so a corrupt or foreign backup never replaces the vault.
func (a *app) verifyBackup(ctx context.Context, data *backup.Data) error {
	store := vault.New()
	if err := store.Load(data.Vault.Records); err != nil {
		return err
	}
	ctl := session.New(store, data.Vault.Verifier)
	defer func() { _ = ctl.Close() }()

	pass, err := a.prompt.Secret(i18n.T("prompt.backup_passphrase"))
	if err != nil {
		return err
	}
	err = ctl.Unlock(ctx, pass)
	pass.Zero()
	if err != nil {
		return err
	}
	names, err := ctl.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		rec, err := ctl.Get(ctx, name)
		if err != nil {
			return err
		}
		rec.Wipe()
	}
	return nil
}

func newAuditLogCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit-log",
		Short: "Show the audit trail, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, true, func(ctx context.Context) error {
				return a.printAuditLog(ctx, limit)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of entries (0 for all)")
	return cmd
}

func (a *app) printAuditLog(ctx context.Context, limit int) error {
	entries, err := a.db.AuditEntries(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, i18n.T("audit.empty"))
		return nil
	}
	fmt.Fprintf(a.out, "%-19s  %-12s  %-18s  %s\n",
		i18n.T("audit.col.time"), i18n.T("audit.col.user"), i18n.T("audit.col.action"), i18n.T("audit.col.details"))
	for _, e := range entries {
		fmt.Fprintf(a.out, "%-19s  %-12s  %-18s  %s\n",
			e.Timestamp.Local().Format(timeLayout), e.Username, e.Action, e.Details)
	}
	return nil
}

func newDBMaintainCmd(a *app) *cobra.Command {
	var skipIntegrity bool
	var timeoutSec int
	cmd := &cobra.Command{
		Use:   "db-maintain",
		Short: "Run database maintenance (VACUUM/OPTIMIZE) for the configured DB",
		Long:  `Runs engine-specific maintenance tasks (VACUUM, OPTIMIZE TABLE, PRAGMA optimize).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, false, func(ctx context.Context) error {
				if skipIntegrity {
					fmt.Fprintln(a.out, i18n.T("db_maintain.skip_integrity"))
				}
				if timeoutSec > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
					defer cancel()
				}
				if err := a.db.Maintain(ctx, storage.MaintenanceOptions{SkipIntegrityCheck: skipIntegrity}); err != nil {
					return fmt.Errorf("maintenance failed: %w", err)
				}
				fmt.Fprintln(a.out, i18n.T("db_maintain.success", a.db.Type()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&skipIntegrity, "skip-integrity", false, "Skip integrity_check (SQLite) during maintenance")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "Timeout in seconds for maintenance (0 means no timeout)")
	return cmd
}
