// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package storage

import (
	"context"
	"os/user"
	"strings"

	"github.com/toeirei/passmaster/internal/clock"
	"github.com/toeirei/passmaster/internal/model"
)

// currentUsername returns the OS user name without a Windows domain prefix.
func currentUsername() string {
	cur, err := user.Current()
	if err != nil {
		return "unknown"
	}
	if parts := strings.Split(cur.Username, `\`); len(parts) > 1 {
		return parts[1]
	}
	return cur.Username
}

// LogAction records an audit trail event.
func (s *Store) LogAction(ctx context.Context, action, details string) error {
	c := s.clock
	if c == nil {
		c = clock.Default()
	}
	entry := &AuditLogModel{
		Timestamp: toMicros(c.Now()),
		Username:  currentUsername(),
		Action:    action,
		Details:   details,
	}
	_, err := s.bun.NewInsert().Model(entry).Exec(ctx)
	return MapDBError(err)
}

// AuditEntries returns the audit trail, most recent first. A positive limit
// caps the number of entries.
func (s *Store) AuditEntries(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	var rows []AuditLogModel
	q := s.bun.NewSelect().Model(&rows).OrderExpr("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditEntry, len(rows))
	for i, r := range rows {
		out[i] = model.AuditEntry{
			ID:        r.ID,
			Timestamp: fromMicros(r.Timestamp),
			Username:  r.Username,
			Action:    r.Action,
			Details:   r.Details,
		}
	}
	return out, nil
}
