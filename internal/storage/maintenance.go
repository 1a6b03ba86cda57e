// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package storage

import (
	"context"
	"fmt"
)

// MaintenanceOptions tunes Maintain.
type MaintenanceOptions struct {
	// SkipIntegrityCheck skips SQLite's PRAGMA integrity_check.
	SkipIntegrityCheck bool
}

// Maintain performs engine-specific upkeep. SQLite runs PRAGMA optimize,
// VACUUM, a WAL checkpoint and an integrity check. Postgres runs VACUUM
// ANALYZE. MySQL runs OPTIMIZE TABLE on every vault table.
func (s *Store) Maintain(ctx context.Context, opts MaintenanceOptions) error {
	db := s.bun.DB
	switch s.dbType {
	case SQLite:
		// optimize may be unsupported for in-memory databases
		if _, err := db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
			dbLogf("sqlite optimize failed (ignored): %v", err)
		}
		if _, err := db.ExecContext(ctx, "VACUUM;"); err != nil {
			return fmt.Errorf("sqlite vacuum failed: %w", err)
		}
		_, _ = db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);")
		if !opts.SkipIntegrityCheck {
			var res string
			if err := db.QueryRowContext(ctx, "PRAGMA integrity_check;").Scan(&res); err != nil {
				return fmt.Errorf("sqlite integrity_check failed: %w", err)
			}
			if res != "ok" {
				return fmt.Errorf("sqlite integrity_check failed: %s", res)
			}
		}
	case Postgres:
		if _, err := db.ExecContext(ctx, "VACUUM ANALYZE;"); err != nil {
			return fmt.Errorf("postgres vacuum failed: %w", err)
		}
	case MySQL:
		var lastErr error
		for _, table := range []string{"vault_meta", "credentials", "audit_log"} {
			if _, err := db.ExecContext(ctx, "OPTIMIZE TABLE "+table); err != nil {
				dbLogf("mysql optimize table %s failed: %v", table, err)
				lastErr = err
			}
		}
		if lastErr != nil {
			return fmt.Errorf("mysql optimize encountered errors: %w", lastErr)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDB, s.dbType)
	}
	dbLogf("maintenance for %s completed", s.dbType)
	return nil
}
