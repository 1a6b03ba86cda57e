// Copyright (c) 2026 Keymaster Team
// Passmaster - terminal credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// package storage persists the vault in a SQL database through Bun. It only
// ever sees sealed records, the passphrase verifier and the audit trail.
// SQLite is the default engine; PostgreSQL and MySQL are supported.
package storage // import "github.com/toeirei/passmaster/internal/storage"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/toeirei/passmaster/internal/clock"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	// SQL drivers for every supported engine.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported database types.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	MySQL    = "mysql"
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// Store is a Bun-backed vault repository.
type Store struct {
	bun    *bun.DB
	dbType string
	dsn    string
	clock  clock.Clock
}

// driverName maps a database type to its registered database/sql driver.
func driverName(dbType string) (string, error) {
	switch dbType {
	case SQLite:
		return "sqlite", nil
	case Postgres:
		// The pgx stdlib registers driver name "pgx".
		return "pgx", nil
	case MySQL:
		return "mysql", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDB, dbType)
	}
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func isMemorySQLite(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:")
}

// Open connects to the database, applies pending migrations and returns a Store.
func Open(ctx context.Context, dbType, dsn string) (*Store, error) {
	driver, err := driverName(dbType)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("storage: empty DSN for %s", dbType)
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	const (
		defaultMaxOpenConns    = 10
		defaultMaxIdleConns    = 10
		defaultConnMaxLifetime = 5 * time.Minute
	)
	maxOpen := envInt("PASSMASTER_DB_MAX_OPEN_CONNS", defaultMaxOpenConns)
	maxIdle := envInt("PASSMASTER_DB_MAX_IDLE_CONNS", defaultMaxIdleConns)
	// SQLite serialises writers anyway, and an in-memory database exists
	// per connection, so a single connection keeps every query on one view.
	if dbType == SQLite {
		maxOpen, maxIdle = 1, 1
	}
	connMax := time.Duration(envInt("PASSMASTER_DB_CONN_MAX_LIFETIME_SECONDS", int(defaultConnMaxLifetime/time.Second))) * time.Second
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(connMax)
	if dbType == SQLite && isMemorySQLite(dsn) {
		// the database vanishes with its last connection
		sqlDB.SetConnMaxLifetime(0)
	}
	dbLogf("opened %s driver in %s (conn max open=%d, maxLifetime=%s)", driver, time.Since(start), maxOpen, connMax)

	bdb := createBunDB(sqlDB, dbType)
	if err := bdb.PingContext(ctx); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dbType, err)
	}

	migStart := time.Now()
	if err := RunMigrations(ctx, bdb, dbType); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	dbLogf("migrations for %s completed in %s", dbType, time.Since(migStart))

	return &Store{bun: bdb, dbType: dbType, dsn: dsn, clock: clock.Default()}, nil
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and dbType.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case Postgres:
		return bun.NewDB(sqlDB, pgdialect.New())
	case MySQL:
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

// SetClock sets the clock used for audit timestamps.
func (s *Store) SetClock(c clock.Clock) { s.clock = c }

// Type returns the database type.
func (s *Store) Type() string { return s.dbType }

// BunDB exposes the underlying Bun handle.
func (s *Store) BunDB() *bun.DB { return s.bun }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.bun == nil {
		return nil
	}
	return s.bun.Close()
}
