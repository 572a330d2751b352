// Package storage owns the database handle of the credit engine. It opens
// the SQLite (or PostgreSQL) database, applies the embedded migrations and
// hands out key/value repositories, either bound to the pool or to a
// serialized transaction.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/creditkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/creditkeeper/internal/client/repositories/kv"
	"github.com/dmitrijs2005/creditkeeper/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Store serializes every read-modify-write of the engine through Atomic.
// Code running inside an Atomic callback must use the repository it is
// given and never call KV or Atomic again.
type Store struct {
	db      *sql.DB
	driver  string
	factory kv.Factory
	mu      sync.Mutex
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func dialect(driver string) string {
	if driver == DriverPostgres {
		return "pgx"
	}
	return "sqlite3"
}

// RunMigrations applies the embedded migrations for driver.
func RunMigrations(ctx context.Context, db *sql.DB, driver string) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(dialect(driver)); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, migrations.Dir(driver)); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Open connects to the database and migrates it.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// one connection: keeps :memory: databases alive and makes SQLite
		// writers queue instead of failing with SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := RunMigrations(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db, driver), nil
}

// New wraps an already migrated database.
func New(db *sql.DB, driver string) *Store {
	f := kv.SQLiteFactory
	if driver == DriverPostgres {
		f = kv.PostgresFactory
	}
	return &Store{db: db, driver: driver, factory: f}
}

// KV returns a repository bound to the connection pool.
func (s *Store) KV() kv.Repository {
	return s.factory(s.db)
}

// Atomic runs fn inside one database transaction while holding the store
// lock, so concurrent callers observe each other's writes in order.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repo kv.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.factory(tx))
	})
}

func (s *Store) Driver() string { return s.driver }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	return s.db.Close()
}
