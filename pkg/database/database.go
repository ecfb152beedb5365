package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// Open picks a dialect from the DSN scheme. sqlite:// URLs are meant for local
// development and tests; everything else is handed to Postgres.
func Open(ctx context.Context, dsn string, opts Options) (*gorm.DB, error) {
	if path, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
		return OpenSQLite(path, opts)
	}
	return OpenPostgres(ctx, dsn, opts)
}

// OpenSQLite opens a pure-Go SQLite database. A single connection is used so
// that in-memory databases are shared and writes are serialized.
func OpenSQLite(path string, opts Options) (*gorm.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := gorm.Open(sqlite.Open(path+sep+"_pragma=foreign_keys(1)"), GormConfig(opts.Verbose))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db db() error: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
