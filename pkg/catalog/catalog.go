// Package catalog is the persisted store of repositories, package metadata, package
// versions, installed apps and per-app preferences. It is backed by SQLite.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver" // database/sql driver "sqlite3"
	_ "github.com/ncruces/go-sqlite3/embed"  // embedded SQLite build
	"github.com/pressly/goose/v3"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/catalog/migrations"
	"github.com/cperrin88/reposync/pkg/fsutil"
)

// DBTX is the subset of database/sql used by the queries. Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs the catalog statements against a DBTX.
type Queries struct {
	db DBTX
}

// Catalog owns the database handle. Its embedded Queries run outside of any transaction.
type Catalog struct {
	*Queries
	db   *sql.DB
	path string
}

var gooseOnce sync.Once

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) { logger.Debugf(format, v...) }
func (gooseLogger) Fatalf(format string, v ...interface{}) {
	logger.Errorf(format, v...)
	os.Exit(1)
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(60000)&_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_txlock=immediate", path)
}

// Open opens or creates the catalog at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Catalog, error) {
	if err := fsutil.EnsureFileDir(path); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping catalog: %w", err)
	}

	gooseOnce.Do(func() {
		goose.SetBaseFS(migrations.FS)
		goose.SetLogger(gooseLogger{})
	})
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate catalog: %w", err)
	}

	logger.Debug("catalog opened", logger.Fields{"path": path})
	return &Catalog{Queries: &Queries{db: db}, db: db, path: path}, nil
}

// Path returns the database file path.
func (c *Catalog) Path() string { return c.path }

// WithTx runs fn in a transaction. It commits when fn returns nil and rolls back on error
// or panic.
func (c *Catalog) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Queries) error) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(ctx, &Queries{db: tx})
}

// WALCheckpoint folds the write-ahead log back into the database file.
func (c *Catalog) WALCheckpoint(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint catalog: %w", err)
	}
	return nil
}

// Close checkpoints and closes the catalog.
func (c *Catalog) Close() error {
	if err := c.WALCheckpoint(context.Background()); err != nil {
		logger.Warn("catalog checkpoint failed", logger.Fields{"error": err.Error()})
	}
	return c.db.Close()
}
