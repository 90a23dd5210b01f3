// Package repo implements the data persistence layer for posts, versions,
// the reference catalog and idempotency records, backed by GORM. This file
// holds SQLite bootstrapping and schema migration.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-postgen/internal/domain"
)

// SQLiteOptions tunes the connection pool and lock handling.
// Zero fields fall back to DefaultSQLiteOptions.
type SQLiteOptions struct {
	MaxOpenConns int
	BusyTimeout  time.Duration
	Tracing      bool
}

// DefaultSQLiteOptions matches the dev server's expected load: a handful
// of concurrent writers serialised by SQLite's WAL lock.
var DefaultSQLiteOptions = SQLiteOptions{
	MaxOpenConns: 10,
	BusyTimeout:  5 * time.Second,
	Tracing:      true,
}

func (o SQLiteOptions) withDefaults() SQLiteOptions {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = DefaultSQLiteOptions.MaxOpenConns
	}
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = DefaultSQLiteOptions.BusyTimeout
	}
	return o
}

// OpenSQLite opens (or creates) the database file at path, applies the
// WAL/foreign-key PRAGMAs and sizes the pool. With opts.Tracing every
// query becomes an OpenTelemetry span.
func OpenSQLite(path string, opts SQLiteOptions) (*gorm.DB, error) {
	// sqlite reports a missing parent directory as "out of memory (14)".
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}
	opts = opts.withDefaults()

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}

	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", opts.BusyTimeout.Milliseconds()),
	} {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Profile{},
		&domain.Platform{},
		&domain.Project{},
		&domain.Post{},
		&domain.PostVersion{},
		&domain.Idempotency{},
	)
}
