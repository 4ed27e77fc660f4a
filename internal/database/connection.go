package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Options describes how to reach the relational store.
type Options struct {
	// Driver is "sqlite3" or "postgres".
	Driver string
	// DSN is the driver-specific data source. For sqlite3 this is a file
	// path (parent directories are created) or ":memory:".
	DSN string

	// Pool settings, only meaningful for postgres; sqlite3 is pinned to a
	// single connection regardless.
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens the store, applies connection settings appropriate for the
// driver and runs all pending migrations.
func Connect(opts Options) (*sqlx.DB, error) {
	if opts.Driver == "sqlite3" && opts.DSN != ":memory:" {
		if dir := filepath.Dir(opts.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.Driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite allows a single writer; the study/import flow is
		// sequential anyway.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
