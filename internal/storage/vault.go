// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/toeirei/passmaster/internal/model"
	"github.com/uptrace/bun"
)

// Load reads the verifier and every sealed record. An uninitialised vault
// yields a snapshot with a nil verifier and no records.
func (s *Store) Load(ctx context.Context) (model.Snapshot, error) {
	snap := model.Snapshot{Version: model.SnapshotVersion}

	var meta VaultMetaModel
	err := s.bun.NewSelect().Model(&meta).Where("id = ?", metaRowID).Scan(ctx)
	switch {
	case err == nil:
		snap.Verifier = meta.verifier()
		snap.Version = meta.Version
	case errors.Is(err, sql.ErrNoRows):
	default:
		return model.Snapshot{}, fmt.Errorf("storage: load verifier: %w", err)
	}

	var rows []CredentialModel
	if err := s.bun.NewSelect().Model(&rows).OrderExpr("service ASC").Scan(ctx); err != nil {
		return model.Snapshot{}, fmt.Errorf("storage: load credentials: %w", err)
	}
	snap.Records = make([]model.SealedRecord, 0, len(rows))
	for i := range rows {
		snap.Records = append(snap.Records, rows[i].record())
	}
	dbLogf("loaded %d credentials (initialized=%t)", len(rows), snap.Verifier != nil)
	return snap, nil
}

// SaveVerifier stores v, replacing any previous verifier.
func (s *Store) SaveVerifier(ctx context.Context, v *model.Verifier) error {
	if v == nil {
		return errors.New("storage: nil verifier")
	}
	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		return saveVerifierTx(ctx, tx, v, model.SnapshotVersion)
	})
}

func saveVerifierTx(ctx context.Context, tx bun.Tx, v *model.Verifier, version int) error {
	if _, err := ExecRaw(ctx, tx, "DELETE FROM vault_meta"); err != nil {
		return err
	}
	if _, err := tx.NewInsert().Model(metaFromVerifier(v, version)).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// CommitRecord inserts or replaces one sealed record in a single transaction.
func (s *Store) CommitRecord(ctx context.Context, rec model.SealedRecord) error {
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		if _, err := ExecRaw(ctx, tx, "DELETE FROM credentials WHERE service = ?", rec.Service); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(credentialFromRecord(rec)).Exec(ctx)
		return MapDBError(err)
	})
	if err != nil {
		return fmt.Errorf("storage: commit %q: %w", rec.Service, err)
	}
	return nil
}

// DeleteRecord removes one sealed record. Deleting an absent record is not an error.
func (s *Store) DeleteRecord(ctx context.Context, service string) error {
	if _, err := ExecRaw(ctx, s.bun, "DELETE FROM credentials WHERE service = ?", service); err != nil {
		return fmt.Errorf("storage: delete %q: %w", service, err)
	}
	return nil
}

// SaveSnapshot atomically replaces every stored record with snap.Records.
// When snap.Verifier is set it replaces the stored verifier in the same
// transaction; a nil verifier leaves the stored one untouched.
func (s *Store) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	version := snap.Version
	if version == 0 {
		version = model.SnapshotVersion
	}
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		if snap.Verifier != nil {
			if err := saveVerifierTx(ctx, tx, snap.Verifier, version); err != nil {
				return err
			}
		}
		if _, err := ExecRaw(ctx, tx, "DELETE FROM credentials"); err != nil {
			return err
		}
		if len(snap.Records) == 0 {
			return nil
		}
		rows := make([]*CredentialModel, len(snap.Records))
		for i, r := range snap.Records {
			rows[i] = credentialFromRecord(r)
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return MapDBError(err)
	})
	if err != nil {
		return fmt.Errorf("storage: save snapshot: %w", err)
	}
	dbLogf("saved snapshot with %d credentials", len(snap.Records))
	return nil
}

// CommitAll is SaveSnapshot under the name the vault journal expects.
func (s *Store) CommitAll(ctx context.Context, snap model.Snapshot) error {
	return s.SaveSnapshot(ctx, snap)
}
